// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package importer turns uploaded manuscripts and spreadsheet batches into novel chapters.

Two paths share the same building blocks:

  - Single document (.docx): uploaded, stored, converted by a background worker and
    committed as one or more chapters. Progress is exposed by polling the [Record].
  - Spreadsheet batch (.xlsx): parsed and previewed synchronously, then committed
    from an author-confirmed subset of drafts.

# Conflicts

A conflict is a proposed chapter number already used by a live chapter of the
novel. The single-document path renumbers silently to max+1. The bulk path
reports conflicts and leaves resolution to the author.

# Atomicity

Bulk commits create every chapter independently. One failing row is reported
in the result and never rolls back the others.
*/
package importer

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/yomira-import/internal/platform/constants"
	"github.com/taibuivan/yomira-import/internal/platform/validate"
)

// # Limits & Sentinels

const (
	// MaxChaptersPerBatch caps spreadsheet rows and bulk commit payloads.
	MaxChaptersPerBatch = constants.MaxChaptersPerBatch

	// DocumentExt and SpreadsheetExt are the only accepted upload formats.
	DocumentExt    = ".docx"
	SpreadsheetExt = ".xlsx"

	DocumentMimeType    = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	SpreadsheetMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// MaxFilenameLength and MaxTitleLength mirror the column widths.
	MaxFilenameLength = 500
	MaxTitleLength    = 500

	// MaxChapterNumber (exclusive) and ChapterNumberDecimals match the
	// NUMERIC(10,2) chapter number column.
	MaxChapterNumber      = 1e8
	ChapterNumberDecimals = 2
)

// Form and JSON field names used in validation details.
const (
	FieldFile           = "file"
	FieldNovelID        = "novelId"
	FieldSettings       = "settings"
	FieldStartingNumber = "settings.startingChapterNumber"
	FieldImportRecordID = "importRecordId"
	FieldChapters       = "chapters"
)

// ErrNoValidChapters marks a spreadsheet without a single usable row.
var ErrNoValidChapters = errors.New("importer: no valid chapters found")

// # Chapter Draft

// ChapterDraft is a candidate chapter produced by conversion or parsing.
// It is never persisted as-is.
type ChapterDraft struct {
	ChapterNumber float64 `json:"chapterNumber"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	WordCount     int     `json:"wordCount"`
	IsPremium     bool    `json:"isPremium"`
	IsPublished   bool    `json:"isPublished"`
}

// Validate checks the draft invariants and returns the first violation as text.
func (draft ChapterDraft) Validate() string {
	if reason := chapterNumberProblem(draft.ChapterNumber); reason != "" {
		return reason
	}

	switch {
	case strings.TrimSpace(draft.Title) == "":
		return "title is required"
	case utf8.RuneCountInString(draft.Title) > MaxTitleLength:
		return fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	case strings.TrimSpace(draft.Content) == "":
		return "content is required"
	}
	return ""
}

// chapterNumberProblem returns why a number cannot be stored exactly, or "".
func chapterNumberProblem(number float64) string {
	switch {
	case math.IsNaN(number) || math.IsInf(number, 0):
		return "chapter number must be a finite number"
	case number < 0:
		return "chapter number must not be negative"
	case number >= MaxChapterNumber:
		return "chapter number must be less than " + FormatNumber(MaxChapterNumber)
	case decimalPlaces(number) > ChapterNumberDecimals:
		return fmt.Sprintf("chapter number must have at most %d decimal places", ChapterNumberDecimals)
	}
	return ""
}

// decimalPlaces counts digits after the point in the shortest exact rendering,
// so 1.1 is 1 place even though its binary value is not.
func decimalPlaces(number float64) int {
	text := FormatNumber(number)
	if dot := strings.IndexByte(text, '.'); dot >= 0 {
		return len(text) - dot - 1
	}
	return 0
}

// # Settings

// Settings is the configuration chosen at upload time.
type Settings struct {
	StartingChapterNumber *float64 `json:"startingChapterNumber,omitempty"`
	ImportAsPublished     bool     `json:"importAsPublished"`
	ImportAsPremium       bool     `json:"importAsPremium"`
	SplitByHeading        bool     `json:"splitByHeading"`
}

// validate rejects a starting number that could never be stored.
func (settings Settings) validate() error {
	if settings.StartingChapterNumber == nil {
		return nil
	}
	start := *settings.StartingChapterNumber
	v := (&validate.Validator{}).NonNegative(FieldStartingNumber, start)
	if !v.HasErrors() {
		reason := chapterNumberProblem(start)
		v.Custom(FieldStartingNumber, reason != "", reason)
	}
	return v.Err()
}

// # Results

// Preview is the shared output of both preview entry points.
type Preview struct {
	ImportRecordID string         `json:"importRecordId,omitempty"`
	Chapters       []ChapterDraft `json:"chapters"`
	Conflicts      []float64      `json:"conflicts"`
}

// CommitResult reports a bulk commit. Partial failure is data, not an error.
type CommitResult struct {
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}
