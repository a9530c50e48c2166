// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateFilename is the download name of the generated template.
const TemplateFilename = "chapter-import-template.xlsx"

var templateInstructions = []string{
	"Chapter Import Template",
	"",
	"Fill the \"Chapters\" sheet, one chapter per row. Keep the header row unchanged.",
	"",
	"Required columns:",
	"  Chapter Number: up to 2 decimal places (e.g. 1, 2, 2.5 for a side story)",
	"  Title: chapter title",
	"  Content: chapter text. Each line becomes its own paragraph; basic HTML is accepted",
	"",
	"Optional columns (TRUE or FALSE, default FALSE):",
	"  Is Premium: chapter requires a purchase once published",
	"  Is Published: chapter is visible to readers right away",
	"",
	fmt.Sprintf("Maximum %d chapters per upload. Rows with errors are listed by row number.", MaxChaptersPerBatch),
	"Replace the example rows before uploading.",
}

var templateExamples = [][]any{
	{1, "The Beginning", "It was a quiet morning in the village.\nNobody expected the stranger.", "FALSE", "TRUE"},
	{2, "The Stranger", "The stranger asked for a room and paid in old coins.", "FALSE", "TRUE"},
	{2.5, "Side Story: The Innkeeper", "Before the stranger came, the innkeeper had a secret of her own.", "TRUE", "FALSE"},
}

/*
GenerateTemplate builds the downloadable .xlsx skeleton for bulk imports.

Returns:
  - []byte: Workbook with Instructions and Chapters sheets
  - error: Workbook serialization failures
*/
func GenerateTemplate() ([]byte, error) {
	book := excelize.NewFile()
	defer book.Close()

	// Instructions
	if err := book.SetSheetName("Sheet1", SheetInstructions); err != nil {
		return nil, fmt.Errorf("template: rename sheet: %w", err)
	}
	for i, line := range templateInstructions {
		if err := book.SetCellStr(SheetInstructions, fmt.Sprintf("A%d", i+1), line); err != nil {
			return nil, fmt.Errorf("template: write instructions: %w", err)
		}
	}
	if err := book.SetColWidth(SheetInstructions, "A", "A", 100); err != nil {
		return nil, fmt.Errorf("template: size instructions: %w", err)
	}

	// Chapters
	index, err := book.NewSheet(SheetChapters)
	if err != nil {
		return nil, fmt.Errorf("template: add chapters sheet: %w", err)
	}

	header := make([]any, len(Columns))
	for i, column := range Columns {
		header[i] = column
	}
	if err := book.SetSheetRow(SheetChapters, "A1", &header); err != nil {
		return nil, fmt.Errorf("template: write header: %w", err)
	}

	for i, example := range templateExamples {
		row := example
		if err := book.SetSheetRow(SheetChapters, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("template: write example: %w", err)
		}
	}

	bold, err := book.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("template: style: %w", err)
	}
	if err := book.SetCellStyle(SheetChapters, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("template: style header: %w", err)
	}
	if err := book.SetColWidth(SheetChapters, "B", "B", 30); err != nil {
		return nil, fmt.Errorf("template: size columns: %w", err)
	}
	if err := book.SetColWidth(SheetChapters, "C", "C", 80); err != nil {
		return nil, fmt.Errorf("template: size columns: %w", err)
	}
	book.SetActiveSheet(index)

	buffer, err := book.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("template: serialize: %w", err)
	}
	return buffer.Bytes(), nil
}
