// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-import/pkg/slug"
)

/*
TestFrom covers accent folding, punctuation collapsing and edge trimming.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "The Fall", "the-fall"},
		{"accents", "Café Noël", "cafe-noel"},
		{"punctuation", "Chapter 1: Begin -- Again!", "chapter-1-begin-again"},
		{"edges", "  ...Interlude...  ", "interlude"},
		{"symbols_only", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.input))
		})
	}
}
