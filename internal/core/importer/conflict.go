// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"fmt"
	"slices"
)

// # Conflict Detection

// ChapterNumbers reads the numbering state of a novel's live chapters.
type ChapterNumbers interface {
	ExistingNumbers(context context.Context, novelID string, numbers []float64) ([]float64, error)
	MaxNumber(context context.Context, novelID string) (float64, error)
}

/*
DetectConflicts returns the proposed numbers already used by the novel.

Parameters:
  - context: context.Context
  - store: ChapterNumbers
  - novelID: string
  - proposed: []float64 (Duplicates are tolerated)

Returns:
  - []float64: Colliding numbers, ascending, never nil
  - error: Storage failures
*/
func DetectConflicts(context context.Context, store ChapterNumbers, novelID string, proposed []float64) ([]float64, error) {
	unique := slices.Clone(proposed)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	taken, err := store.ExistingNumbers(context, novelID, unique)
	if err != nil {
		return nil, fmt.Errorf("importer: detect conflicts: %w", err)
	}

	conflicts := make([]float64, 0, len(taken))
	for _, number := range taken {
		if _, found := slices.BinarySearch(unique, number); found {
			conflicts = append(conflicts, number)
		}
	}
	return conflicts, nil
}

/*
ResolveConflicts renumbers colliding drafts past the novel's highest chapter.

Description: A draft whose number is taken, either by the novel or by an earlier
draft of the same batch, moves to the highest number seen so far plus one.
Drafts are returned in their original order.

Parameters:
  - context: context.Context
  - store: ChapterNumbers
  - novelID: string
  - drafts: []ChapterDraft

Returns:
  - []ChapterDraft: A renumbered copy
  - error: Storage failures
*/
func ResolveConflicts(context context.Context, store ChapterNumbers, novelID string, drafts []ChapterDraft) ([]ChapterDraft, error) {
	proposed := make([]float64, len(drafts))
	for i, d := range drafts {
		proposed[i] = d.ChapterNumber
	}

	conflicts, err := DetectConflicts(context, store, novelID, proposed)
	if err != nil {
		return nil, err
	}

	resolved := slices.Clone(drafts)
	used := make(map[float64]bool, len(resolved))
	for _, c := range conflicts {
		used[c] = true
	}

	// Renumbering is only needed when something collides
	ceiling := -1.0
	for i := range resolved {
		number := resolved[i].ChapterNumber
		if used[number] {
			if ceiling < 0 {
				if ceiling, err = store.MaxNumber(context, novelID); err != nil {
					return nil, fmt.Errorf("importer: resolve conflicts: %w", err)
				}
				for n := range used {
					ceiling = max(ceiling, n)
				}
			}
			ceiling++
			number = ceiling
			resolved[i].ChapterNumber = number
		}
		used[number] = true
		if ceiling >= 0 {
			ceiling = max(ceiling, number)
		}
	}
	return resolved, nil
}
