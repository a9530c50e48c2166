// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package readtime estimates how long a chapter takes to read.
package readtime

import (
	"math"
	"strings"
)

// WordsPerMinute is the average silent reading speed used for estimates.
const WordsPerMinute = 200

// CountWords counts whitespace-delimited tokens, discarding empty ones.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Minutes converts a word count into whole reading minutes, never less than one.
func Minutes(wordCount int) int {
	if wordCount <= 0 {
		return 1
	}
	return int(math.Ceil(float64(wordCount) / WordsPerMinute))
}
