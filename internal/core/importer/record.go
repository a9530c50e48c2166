// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"slices"
	"time"
)

// # Import Record

// Status is the lifecycle state of an import record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusPreviewing Status = "previewing"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists the statuses each state may move to.
var transitions = map[Status][]Status{
	StatusPending:    {StatusUploading, StatusFailed},
	StatusUploading:  {StatusProcessing, StatusFailed},
	StatusPreviewing: {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress maps a status to a coarse completion percentage for polling clients.
func (s Status) Progress() int {
	switch s {
	case StatusUploading:
		return 10
	case StatusPreviewing, StatusProcessing:
		return 50
	case StatusCompleted, StatusFailed:
		return 100
	default:
		return 0
	}
}

// Record tracks one upload through its lifecycle.
type Record struct {
	ID                  string
	NovelID             string
	UploadedBy          string
	Filename            string
	OriginalSize        int64
	MimeType            string
	StorageKey          string // empty for spreadsheet batches
	Status              Status
	ExtractedContent    *Snapshot // written once at preview time
	Settings            Settings
	ErrorMessage        string // set only when failed
	ChaptersCreated     int
	ImagesExtracted     int
	ProcessingStarted   *time.Time
	ProcessingCompleted *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Snapshot is the audit copy of what a preview showed the author.
type Snapshot struct {
	Chapters  []ChapterDraft `json:"chapters"`
	Conflicts []float64      `json:"conflicts"`
}

// Transition is a guarded status change with the fields it writes.
// Nil fields are left untouched.
type Transition struct {
	From                []Status
	To                  Status
	ErrorMessage        *string
	ChaptersCreated     *int
	ImagesExtracted     *int
	ProcessingStarted   *time.Time
	ProcessingCompleted *time.Time
	ExtractedContent    *Snapshot // ignored once a snapshot exists
}

// # Status View

// StatusView is the read-only payload returned to polling clients.
type StatusView struct {
	Status          Status `json:"status"`
	Progress        int    `json:"progress"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	ChaptersCreated int    `json:"chaptersCreated"`
	ImagesExtracted int    `json:"imagesExtracted"`
}

// View projects the record onto its polling payload.
func (record *Record) View() StatusView {
	return StatusView{
		Status:          record.Status,
		Progress:        record.Status.Progress(),
		ErrorMessage:    record.ErrorMessage,
		ChaptersCreated: record.ChaptersCreated,
		ImagesExtracted: record.ImagesExtracted,
	}
}
