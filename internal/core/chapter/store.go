// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import "context"

// # Chapter Data Access

// Repository defines the data access contract used by the import pipeline.
//
// Every query ignores soft-deleted chapters and novels.
type Repository interface {

	/*
		NovelExists reports whether a non-deleted novel exists.

		Parameters:
		  - context: context.Context
		  - novelID: string (UUID)

		Returns:
		  - bool: True if the novel can receive chapters
		  - error: Storage failures
	*/
	NovelExists(context context.Context, novelID string) (bool, error)

	/*
		ExistingNumbers returns which of the proposed numbers are already taken.

		Parameters:
		  - context: context.Context
		  - novelID: string (UUID)
		  - numbers: []float64 (Proposed chapter numbers)

		Returns:
		  - []float64: The colliding subset, ascending
		  - error: Storage failures
	*/
	ExistingNumbers(context context.Context, novelID string, numbers []float64) ([]float64, error)

	/*
		MaxNumber returns the highest chapter number of a novel, or 0 when it has none.

		Parameters:
		  - context: context.Context
		  - novelID: string (UUID)

		Returns:
		  - float64: Highest chapter number
		  - error: Storage failures
	*/
	MaxNumber(context context.Context, novelID string) (float64, error)

	/*
		Create persists a new chapter.

		Parameters:
		  - context: context.Context
		  - chapter: *Chapter

		Returns:
		  - error: apperr.Conflict on a duplicate number or slug, otherwise storage failures
	*/
	Create(context context.Context, chapter *Chapter) error

	/*
		TouchNovel bumps the parent novel's last-modified timestamp.

		Parameters:
		  - context: context.Context
		  - novelID: string (UUID)

		Returns:
		  - error: apperr.NotFound if the novel is missing
	*/
	TouchNovel(context context.Context, novelID string) error
}
