// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter provides persistence access to novel chapters.

The catalogue service owns chapter CRUD. This package exposes only what the
import pipeline needs: reading existing chapter numbers, creating chapters and
touching the parent novel.

# Numbering

  - Chapter numbers are decimals (1.5 is a side story between 1 and 2).
  - DisplayOrder is derived from the number (number × 10) so that later
    insertions fit between chapters without a reorder pass.
*/
package chapter

import (
	"math"
	"time"
)

// # Chapter Aggregate

// Status is the persisted visibility of a chapter.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusFree    Status = "free"
	StatusPremium Status = "premium"
)

// Chapter represents a single persisted chapter of a novel.
type Chapter struct {
	ID                string
	NovelID           string
	Number            float64 // Supports side stories (e.g. 12.5)
	Title             string
	Slug              string
	Content           string // Sanitized HTML
	WordCount         int
	EstimatedReadTime int // Minutes
	Status            Status
	IsPublished       bool
	IsPremium         bool
	DisplayOrder      int
	PublishedAt       *time.Time // nil while unpublished
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time // soft-delete tracker
}

// # Derivations

// StatusFor derives the persisted status from the publish flags.
// Unpublished chapters are drafts regardless of the premium flag.
func StatusFor(isPublished, isPremium bool) Status {
	switch {
	case !isPublished:
		return StatusDraft
	case isPremium:
		return StatusPremium
	default:
		return StatusFree
	}
}

// DisplayOrderFor maps a chapter number to its display slot.
func DisplayOrderFor(number float64) int {
	return int(math.Round(number * 10))
}
