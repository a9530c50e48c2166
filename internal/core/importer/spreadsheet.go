// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/net/html"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
)

// # Spreadsheet Contract

const (
	SheetChapters     = "Chapters"
	SheetInstructions = "Instructions"

	ColumnChapterNumber = "Chapter Number"
	ColumnTitle         = "Title"
	ColumnContent       = "Content"
	ColumnIsPremium     = "Is Premium"
	ColumnIsPublished   = "Is Published"
)

// Columns is the exact header row of the Chapters sheet.
var Columns = []string{ColumnChapterNumber, ColumnTitle, ColumnContent, ColumnIsPremium, ColumnIsPublished}

// Decompression bounds for a batch upload. Worksheets above the XML limit are
// spilled to a temporary file by excelize instead of being held in memory.
const (
	spreadsheetUnzipLimit    int64 = 64 << 20
	spreadsheetUnzipXMLLimit int64 = 16 << 20
)

/*
ParseSpreadsheet reads the Chapters sheet of an .xlsx batch into drafts.

Description: Every row is validated and all row errors are collected before
failing, so the author sees the whole list at once. Blank rows are skipped.
Row numbers match what a spreadsheet application shows (header is row 1).
Rows are streamed; only the first [MaxChaptersPerBatch] valid rows are
converted, the rest are validated so their errors still take precedence
over the row cap.

Parameters:
  - data: []byte (Raw .xlsx bytes)

Returns:
  - []ChapterDraft: Between 1 and [MaxChaptersPerBatch] drafts
  - error: apperr.ValidationError (cause [ErrNoValidChapters] when nothing usable remains)
*/
func ParseSpreadsheet(data []byte) ([]ChapterDraft, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    spreadsheetUnzipLimit,
		UnzipXMLSizeLimit: spreadsheetUnzipXMLLimit,
	})
	if err != nil {
		// Partially opened books may hold spilled temporary files
		if book != nil {
			book.Close()
		}
		return nil, apperr.ValidationError("file is not a valid .xlsx spreadsheet")
	}
	defer book.Close()

	if !hasSheet(book, SheetChapters) {
		return nil, apperr.ValidationError(fmt.Sprintf("spreadsheet must contain a sheet named %q", SheetChapters))
	}

	rows, err := book.Rows(SheetChapters)
	if err != nil {
		return nil, apperr.ValidationError("spreadsheet could not be read")
	}
	defer rows.Close()

	var scanner *rowScanner
	for rowNumber := 1; rows.Next(); rowNumber++ {
		cells, err := rows.Columns()
		if err != nil {
			return nil, apperr.ValidationError("spreadsheet could not be read")
		}

		if scanner == nil {
			columns, err := mapColumns(cells)
			if err != nil {
				return nil, err
			}
			scanner = newRowScanner(columns)
			continue
		}
		scanner.scan(rowNumber, cells)
	}
	if rows.Error() != nil {
		return nil, apperr.ValidationError("spreadsheet could not be read")
	}

	if scanner == nil {
		return nil, apperr.ValidationError("no valid chapters found").WithCause(ErrNoValidChapters)
	}
	return scanner.result()
}

// # Row Scanning

// rowScanner accumulates drafts and row errors across the data rows.
type rowScanner struct {
	columns    map[string]int
	firstRowOf map[float64]int
	drafts     []ChapterDraft
	overflow   int // valid rows beyond the cap; validated, never converted
	problems   []apperr.FieldError
}

func newRowScanner(columns map[string]int) *rowScanner {
	return &rowScanner{columns: columns, firstRowOf: map[float64]int{}}
}

// scan validates one data row and converts it while the batch is under the cap.
func (scanner *rowScanner) scan(rowNumber int, cells []string) {
	if isBlankRow(cells) {
		return
	}

	fields, reasons := readRow(cells, scanner.columns)
	if len(reasons) == 0 {
		if first, dup := scanner.firstRowOf[fields.number]; dup {
			reasons = append(reasons, fmt.Sprintf("duplicate chapter number %s (also in row %d)", FormatNumber(fields.number), first))
		} else {
			scanner.firstRowOf[fields.number] = rowNumber
		}
	}

	if len(reasons) > 0 {
		for _, reason := range reasons {
			scanner.problems = append(scanner.problems, apperr.FieldError{Field: fmt.Sprintf("Row %d", rowNumber), Message: reason})
		}
		return
	}

	if len(scanner.drafts) < MaxChaptersPerBatch {
		scanner.drafts = append(scanner.drafts, fields.draft())
		return
	}
	scanner.overflow++
}

// result applies the failure order: row errors, then no rows, then the cap.
func (scanner *rowScanner) result() ([]ChapterDraft, error) {
	switch {
	case len(scanner.problems) > 0:
		lines := make([]string, len(scanner.problems))
		for i, p := range scanner.problems {
			lines[i] = p.Field + ": " + p.Message
		}
		return nil, apperr.ValidationError(strings.Join(lines, "\n"), scanner.problems...)
	case len(scanner.drafts) == 0:
		return nil, apperr.ValidationError("no valid chapters found").WithCause(ErrNoValidChapters)
	case scanner.overflow > 0:
		return nil, apperr.ValidationError(fmt.Sprintf("maximum %d chapters per upload", MaxChaptersPerBatch))
	}
	return scanner.drafts, nil
}

// hasSheet matches sheet names exactly. Excel itself ignores case; the contract does not.
func hasSheet(book *excelize.File, name string) bool {
	for _, sheet := range book.GetSheetList() {
		if sheet == name {
			return true
		}
	}
	return false
}

// mapColumns locates each contract column in the header row.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(Columns))
	for index, cell := range header {
		name := strings.TrimSpace(cell)
		if _, dup := columns[name]; !dup && name != "" {
			columns[name] = index
		}
	}

	var missing []string
	for _, required := range []string{ColumnChapterNumber, ColumnTitle, ColumnContent} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.ValidationError("missing required column(s): " + strings.Join(missing, ", "))
	}
	return columns, nil
}

// rowFields holds the trimmed cells of a row that passed validation.
type rowFields struct {
	number      float64
	title       string
	content     string
	isPremium   bool
	isPublished bool
}

// readRow validates a row without converting its content.
func readRow(cells []string, columns map[string]int) (rowFields, []string) {
	var reasons []string
	cell := func(name string) string {
		index, ok := columns[name]
		if !ok || index >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[index])
	}

	var number float64
	switch raw := cell(ColumnChapterNumber); {
	case raw == "":
		reasons = append(reasons, ColumnChapterNumber+" is required")
	default:
		parsed, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0):
			reasons = append(reasons, fmt.Sprintf("%s %q is not a valid number", ColumnChapterNumber, raw))
		default:
			if reason := chapterNumberProblem(parsed); reason != "" {
				reasons = append(reasons, ColumnChapterNumber+" "+strings.TrimPrefix(reason, "chapter number "))
				break
			}
			number = parsed
		}
	}

	title := cell(ColumnTitle)
	if title == "" {
		reasons = append(reasons, ColumnTitle+" is required")
	}

	content := cell(ColumnContent)
	if content == "" {
		reasons = append(reasons, ColumnContent+" is required")
	}

	if len(reasons) > 0 {
		return rowFields{}, reasons
	}
	return rowFields{
		number:      number,
		title:       title,
		content:     content,
		isPremium:   parseFlag(cell(ColumnIsPremium)),
		isPublished: parseFlag(cell(ColumnIsPublished)),
	}, nil
}

// draft converts the cell text into markup and counts its words.
func (fields rowFields) draft() ChapterDraft {
	content := textToMarkup(fields.content)
	return ChapterDraft{
		ChapterNumber: fields.number,
		Title:         fields.title,
		Content:       content,
		WordCount:     CountMarkupWords(content),
		IsPremium:     fields.isPremium,
		IsPublished:   fields.isPublished,
	}
}

// parseFlag accepts TRUE in any case. Everything else is false.
func parseFlag(value string) bool {
	return strings.EqualFold(value, "TRUE")
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// textToMarkup wraps plain cell text into paragraphs. Cells that already carry
// markup are passed through.
func textToMarkup(content string) string {
	if strings.Contains(content, "<") && strings.Contains(content, ">") {
		return content
	}

	var builder strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			builder.WriteString("<p>" + html.EscapeString(line) + "</p>")
		}
	}
	return builder.String()
}

// FormatNumber renders a chapter number without trailing zeros (2, 1.5).
func FormatNumber(number float64) string {
	return strconv.FormatFloat(number, 'f', -1, 64)
}
