// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/yomira-import/internal/core/chapter"
	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-import/pkg/readtime"
	"github.com/taibuivan/yomira-import/pkg/slug"
	"github.com/taibuivan/yomira-import/pkg/uuid"
)

// # Bulk Commit

// ChapterWriter persists chapters and maintains the parent novel.
type ChapterWriter interface {
	Create(context context.Context, chapter *chapter.Chapter) error
	TouchNovel(context context.Context, novelID string) error
}

/*
CommitChapters creates one chapter per confirmed draft.

Description: Each draft is created on its own; a failure is recorded as
"Chapter <number> (<title>): <reason>" and the loop moves on. Conflicts are
not re-checked here, the chapter table's unique indexes are the backstop.
Slug, word count, read time, status and display order are all re-derived.

Parameters:
  - context: context.Context
  - writer: ChapterWriter
  - novelID: string
  - drafts: []ChapterDraft (At most [MaxChaptersPerBatch])

Returns:
  - CommitResult: Created count and per-chapter errors
  - error: apperr.ValidationError when the batch is oversized
*/
func CommitChapters(context context.Context, writer ChapterWriter, novelID string, drafts []ChapterDraft) (CommitResult, error) {
	if len(drafts) > MaxChaptersPerBatch {
		return CommitResult{}, apperr.ValidationError(fmt.Sprintf("maximum %d chapters per upload", MaxChaptersPerBatch))
	}

	logger := ctxutil.GetLogger(context)
	result := CommitResult{Errors: []string{}}

	for _, draft := range drafts {
		record, reason := buildChapter(novelID, draft)
		if reason == "" {
			if err := writer.Create(context, record); err != nil {
				reason = persistenceReason(err)
				logger.Warn("import_chapter_create_failed",
					"novel_id", novelID,
					"chapter_number", draft.ChapterNumber,
					"error", err,
				)
			}
		}

		if reason != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Chapter %s (%s): %s", FormatNumber(draft.ChapterNumber), draft.Title, reason))
			continue
		}
		result.Created++
	}

	if result.Created > 0 {
		if err := writer.TouchNovel(context, novelID); err != nil {
			logger.Warn("import_novel_touch_failed", "novel_id", novelID, "error", err)
		}
	}
	return result, nil
}

// buildChapter derives the persisted chapter from a draft.
func buildChapter(novelID string, draft ChapterDraft) (*chapter.Chapter, string) {
	if reason := draft.Validate(); reason != "" {
		return nil, reason
	}

	content := SanitizeMarkup(draft.Content)
	if content == "" {
		return nil, "content is empty after sanitization"
	}

	title := strings.TrimSpace(draft.Title)
	chapterSlug := slug.From(title)
	if chapterSlug == "" {
		chapterSlug = "chapter-" + strings.ReplaceAll(FormatNumber(draft.ChapterNumber), ".", "-")
	}

	words := CountMarkupWords(content)
	record := &chapter.Chapter{
		ID:                uuid.New(),
		NovelID:           novelID,
		Number:            draft.ChapterNumber,
		Title:             title,
		Slug:              chapterSlug,
		Content:           content,
		WordCount:         words,
		EstimatedReadTime: readtime.Minutes(words),
		Status:            chapter.StatusFor(draft.IsPublished, draft.IsPremium),
		IsPublished:       draft.IsPublished,
		IsPremium:         draft.IsPremium,
		DisplayOrder:      chapter.DisplayOrderFor(draft.ChapterNumber),
	}
	if draft.IsPublished {
		now := time.Now().UTC()
		record.PublishedAt = &now
	}
	return record, ""
}

// persistenceReason keeps internal details out of author-facing messages.
func persistenceReason(err error) string {
	if appErr := apperr.As(err); appErr != nil && appErr.Code != "INTERNAL_ERROR" {
		return appErr.Message
	}
	return "could not be saved"
}
