// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/taibuivan/yomira-import/pkg/pointer"
)

// # Filename Metadata

var (
	// "Chapter 12: The Fall.docx", "chapter 1.5 - Side Story.docx"
	chapterPrefixPattern = regexp.MustCompile(`(?i)^chapter\s*(\d+(?:\.\d+)?)\s*[:\-]\s*(.+?)(?:\.[^.]+)?$`)

	// "5 - Interlude.docx", "07_Homecoming.docx"
	leadingNumberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[:_\-]+\s*(.+?)(?:\.[^.]+)?$`)
)

// FilenameMeta is what an upload's name says about the chapter.
type FilenameMeta struct {
	Number *float64 // nil when the name carries no number
	Title  string
}

/*
ParseFilename extracts a chapter number and title from an uploaded file name.

Description: Patterns are tried in priority order. A name matching neither
yields no number and the name itself (without extension) as title. It never fails.

Parameters:
  - filename: string (Client-supplied name, directories are ignored)

Returns:
  - FilenameMeta: Number may be nil, Title is always set
*/
func ParseFilename(filename string) FilenameMeta {
	name := strings.TrimSpace(filepath.Base(filename))
	fallback := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))

	for _, pattern := range []*regexp.Regexp{chapterPrefixPattern, leadingNumberPattern} {
		match := pattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}

		number, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}

		title := strings.TrimSpace(match[2])
		if title == "" {
			title = fallback
		}
		return FilenameMeta{Number: pointer.To(number), Title: title}
	}

	return FilenameMeta{Title: fallback}
}
