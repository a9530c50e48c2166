// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-import/internal/core/importer"
)

/*
TestCanTransition walks the documented state machine.
*/
func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to importer.Status
		allowed  bool
	}{
		{importer.StatusPending, importer.StatusUploading, true},
		{importer.StatusUploading, importer.StatusProcessing, true},
		{importer.StatusPreviewing, importer.StatusProcessing, true},
		{importer.StatusProcessing, importer.StatusCompleted, true},
		{importer.StatusProcessing, importer.StatusFailed, true},
		{importer.StatusPending, importer.StatusProcessing, false},
		{importer.StatusCompleted, importer.StatusFailed, false},
		{importer.StatusFailed, importer.StatusProcessing, false},
		{importer.StatusProcessing, importer.StatusUploading, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, importer.CanTransition(tt.from, tt.to))
		})
	}
}

/*
TestStatusProgress maps each status to its polling percentage.
*/
func TestStatusProgress(t *testing.T) {
	assert.Equal(t, 0, importer.StatusPending.Progress())
	assert.Equal(t, 10, importer.StatusUploading.Progress())
	assert.Equal(t, 50, importer.StatusPreviewing.Progress())
	assert.Equal(t, 50, importer.StatusProcessing.Progress())
	assert.Equal(t, 100, importer.StatusCompleted.Progress())
	assert.Equal(t, 100, importer.StatusFailed.Progress())

	assert.True(t, importer.StatusFailed.IsTerminal())
	assert.False(t, importer.StatusProcessing.IsTerminal())
}
