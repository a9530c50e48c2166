// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/core/chapter"
	"github.com/taibuivan/yomira-import/internal/core/importer"
)

/*
TestCommitChapters_PartialFailure keeps going after a colliding slug.
*/
func TestCommitChapters_PartialFailure(t *testing.T) {
	store := newFakeChapters()
	drafts := []importer.ChapterDraft{
		{ChapterNumber: 1, Title: "Alpha", Content: "<p>one two three</p>", WordCount: 999},
		{ChapterNumber: 2, Title: "Beta", Content: "<p>body</p>", IsPublished: true},
		{ChapterNumber: 3, Title: "Alpha!", Content: "<p>body</p>"},
		{ChapterNumber: 4.5, Title: "Gamma", Content: "<p>body</p>", IsPublished: true, IsPremium: true},
	}

	result, err := importer.CommitChapters(context.Background(), store, testNovelID, drafts)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, []string{"Chapter 3 (Alpha!): chapter slug already exists"}, result.Errors)
	assert.Equal(t, 1, store.touched)
	require.Len(t, store.created, 3)

	alpha := store.created[0]
	assert.Equal(t, "alpha", alpha.Slug)
	assert.Equal(t, 3, alpha.WordCount, "word count is recomputed")
	assert.Equal(t, 1, alpha.EstimatedReadTime)
	assert.Equal(t, chapter.StatusDraft, alpha.Status)
	assert.Nil(t, alpha.PublishedAt)
	assert.Equal(t, 10, alpha.DisplayOrder)

	beta := store.created[1]
	assert.Equal(t, chapter.StatusFree, beta.Status)
	assert.NotNil(t, beta.PublishedAt)

	gamma := store.created[2]
	assert.Equal(t, chapter.StatusPremium, gamma.Status)
	assert.Equal(t, 45, gamma.DisplayOrder)
	assert.Equal(t, testNovelID, gamma.NovelID)
	assert.NotEmpty(t, gamma.ID)
}

/*
TestCommitChapters_Sanitizes drops unsafe markup and rejects invalid drafts per row.
*/
func TestCommitChapters_Sanitizes(t *testing.T) {
	store := newFakeChapters()
	store.failSlugs["broken"] = errors.New("connection reset by peer")

	result, err := importer.CommitChapters(context.Background(), store, testNovelID, []importer.ChapterDraft{
		{ChapterNumber: 1, Title: "Safe", Content: `<p onclick="x()">hi</p><script>alert(1)</script>`},
		{ChapterNumber: 2, Title: "", Content: "<p>no title</p>"},
		{ChapterNumber: 3, Title: "Scripted", Content: "<script>only()</script>"},
		{ChapterNumber: 4, Title: "Broken", Content: "<p>x</p>"},
		{ChapterNumber: 5, Title: "!!!", Content: "<p>x</p>"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, []string{
		"Chapter 2 (): title is required",
		"Chapter 3 (Scripted): content is empty after sanitization",
		"Chapter 4 (Broken): could not be saved",
	}, result.Errors)

	assert.Equal(t, "<p>hi</p>", store.created[0].Content)
	assert.Equal(t, "chapter-5", store.created[1].Slug)
}

/*
TestCommitChapters_NothingCreated leaves the novel untouched.
*/
func TestCommitChapters_NothingCreated(t *testing.T) {
	store := newFakeChapters(1)

	result, err := importer.CommitChapters(context.Background(), store, testNovelID, []importer.ChapterDraft{
		{ChapterNumber: 1, Title: "Again", Content: "<p>x</p>"},
	})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, []string{"Chapter 1 (Again): chapter number already exists"}, result.Errors)
	assert.Zero(t, store.touched)
}

/*
TestCommitChapters_BatchCap refuses more than fifty drafts up front.
*/
func TestCommitChapters_BatchCap(t *testing.T) {
	drafts := make([]importer.ChapterDraft, importer.MaxChaptersPerBatch+1)
	_, err := importer.CommitChapters(context.Background(), newFakeChapters(), testNovelID, drafts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum 50")
}

/*
TestCommitChapters_UnstorableNumbers reports numbers outside NUMERIC(10,2) per row.
*/
func TestCommitChapters_UnstorableNumbers(t *testing.T) {
	store := newFakeChapters()

	result, err := importer.CommitChapters(context.Background(), store, testNovelID, []importer.ChapterDraft{
		{ChapterNumber: 1.005, Title: "Precise", Content: "<p>x</p>"},
		{ChapterNumber: 1e8, Title: "Huge", Content: "<p>x</p>"},
		{ChapterNumber: 99999999.99, Title: "Largest", Content: "<p>x</p>"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, []string{
		"Chapter 1.005 (Precise): chapter number must have at most 2 decimal places",
		"Chapter 100000000 (Huge): chapter number must be less than 100000000",
	}, result.Errors)
}
