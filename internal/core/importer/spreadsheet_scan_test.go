// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestRowScanner_ConvertsOnlyUpToTheCap validates every row but converts at most
MaxChaptersPerBatch of them.
*/
func TestRowScanner_ConvertsOnlyUpToTheCap(t *testing.T) {
	columns, err := mapColumns(Columns)
	require.NoError(t, err)

	scanner := newRowScanner(columns)
	for i := 1; i <= 5000; i++ {
		scanner.scan(i+1, []string{strconv.Itoa(i), "Chapter " + strconv.Itoa(i), "Body text"})
	}

	assert.Len(t, scanner.drafts, MaxChaptersPerBatch)
	assert.Equal(t, 5000-MaxChaptersPerBatch, scanner.overflow)
	assert.Empty(t, scanner.problems)
	assert.Equal(t, "<p>Body text</p>", scanner.drafts[0].Content)

	drafts, err := scanner.result()
	assert.Nil(t, drafts)
	require.Error(t, err)
	assert.Equal(t, "maximum 50 chapters per upload", err.Error())
}

/*
TestRowScanner_ExactlyAtTheCap returns every draft without overflow.
*/
func TestRowScanner_ExactlyAtTheCap(t *testing.T) {
	columns, err := mapColumns(Columns)
	require.NoError(t, err)

	scanner := newRowScanner(columns)
	scanner.scan(2, []string{"", "", ""})
	for i := 1; i <= MaxChaptersPerBatch; i++ {
		scanner.scan(i+2, []string{strconv.Itoa(i), "Chapter", "Body"})
	}

	drafts, err := scanner.result()
	require.NoError(t, err)
	assert.Len(t, drafts, MaxChaptersPerBatch)
	assert.Zero(t, scanner.overflow)
}
