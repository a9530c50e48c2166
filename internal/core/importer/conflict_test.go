// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/core/importer"
)

/*
TestDetectConflicts returns only taken numbers, once each.
*/
func TestDetectConflicts(t *testing.T) {
	store := newFakeChapters(1, 2, 3)

	conflicts, err := importer.DetectConflicts(context.Background(), store, testNovelID, []float64{5, 2, 2, 3.5, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, conflicts)

	conflicts, err = importer.DetectConflicts(context.Background(), store, testNovelID, []float64{4})
	require.NoError(t, err)
	assert.NotNil(t, conflicts)
	assert.Empty(t, conflicts)
}

/*
TestResolveConflicts renumbers past the highest existing chapter.
*/
func TestResolveConflicts(t *testing.T) {
	tests := []struct {
		name     string
		existing []float64
		proposed []float64
		want     []float64
	}{
		{"single_collision", []float64{1, 2, 3}, []float64{2}, []float64{4}},
		{"no_collision", []float64{1, 2, 3}, []float64{7}, []float64{7}},
		{"fractional_max", []float64{1, 3.5}, []float64{1}, []float64{4.5}},
		{"split_batch", []float64{1, 2, 3}, []float64{2, 3, 4}, []float64{4, 5, 6}},
		{"duplicate_inside_batch", nil, []float64{5, 5}, []float64{5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts := make([]importer.ChapterDraft, len(tt.proposed))
			for i, n := range tt.proposed {
				drafts[i] = importer.ChapterDraft{ChapterNumber: n, Title: "T", Content: "<p>x</p>"}
			}

			resolved, err := importer.ResolveConflicts(context.Background(), newFakeChapters(tt.existing...), testNovelID, drafts)
			require.NoError(t, err)

			got := make([]float64, len(resolved))
			for i, d := range resolved {
				got[i] = d.ChapterNumber
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.proposed[0], drafts[0].ChapterNumber, "input is not modified")
		})
	}
}
