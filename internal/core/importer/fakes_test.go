// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/taibuivan/yomira-import/internal/core/chapter"
	"github.com/taibuivan/yomira-import/internal/core/importer"
	"github.com/taibuivan/yomira-import/internal/platform/apperr"
)

const (
	testNovelID = "01900000-0000-7000-8000-000000000001"
	testUserID  = "01900000-0000-7000-8000-0000000000aa"
)

// # Chapter Store Fake

// fakeChapters mimics the chapter table, including its unique indexes.
type fakeChapters struct {
	mu        sync.Mutex
	novels    map[string]bool
	numbers   map[float64]bool
	slugs     map[string]bool
	created   []*chapter.Chapter
	touched   int
	failSlugs map[string]error
}

func newFakeChapters(existing ...float64) *fakeChapters {
	store := &fakeChapters{
		novels:    map[string]bool{testNovelID: true},
		numbers:   map[float64]bool{},
		slugs:     map[string]bool{},
		failSlugs: map[string]error{},
	}
	for _, n := range existing {
		store.numbers[n] = true
	}
	return store
}

func (f *fakeChapters) NovelExists(_ context.Context, novelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.novels[novelID], nil
}

func (f *fakeChapters) ExistingNumbers(_ context.Context, _ string, numbers []float64) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var taken []float64
	for _, n := range numbers {
		if f.numbers[n] {
			taken = append(taken, n)
		}
	}
	slices.Sort(taken)
	return taken, nil
}

func (f *fakeChapters) MaxNumber(_ context.Context, _ string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0.0
	for n := range f.numbers {
		highest = max(highest, n)
	}
	return highest, nil
}

func (f *fakeChapters) Create(_ context.Context, c *chapter.Chapter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSlugs[c.Slug]; err != nil {
		return err
	}
	if f.numbers[c.Number] {
		return apperr.Conflict("chapter number already exists")
	}
	if f.slugs[c.Slug] {
		return apperr.Conflict("chapter slug already exists")
	}
	f.numbers[c.Number] = true
	f.slugs[c.Slug] = true
	f.created = append(f.created, c)
	return nil
}

func (f *fakeChapters) TouchNovel(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

// # Import Record Store Fake

type fakeRecords struct {
	mu      sync.Mutex
	records map[string]importer.Record
	writes  int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]importer.Record{}}
}

func (f *fakeRecords) Create(_ context.Context, record *importer.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.UpdatedAt = record.CreatedAt
	f.records[record.ID] = *record
	f.writes++
	return nil
}

func (f *fakeRecords) FindByID(_ context.Context, id string) (*importer.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, apperr.NotFound("Import record")
	}
	return &record, nil
}

func (f *fakeRecords) Transition(_ context.Context, id string, change importer.Transition) (*importer.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, apperr.NotFound("Import record")
	}
	if !slices.Contains(change.From, record.Status) || !importer.CanTransition(record.Status, change.To) {
		return nil, apperr.InvalidTransition("Import record", string(change.To))
	}

	record.Status = change.To
	if change.ErrorMessage != nil {
		record.ErrorMessage = *change.ErrorMessage
	}
	if change.ChaptersCreated != nil {
		record.ChaptersCreated = *change.ChaptersCreated
	}
	if change.ImagesExtracted != nil {
		record.ImagesExtracted = *change.ImagesExtracted
	}
	if change.ProcessingStarted != nil {
		record.ProcessingStarted = change.ProcessingStarted
	}
	if change.ProcessingCompleted != nil {
		record.ProcessingCompleted = change.ProcessingCompleted
	}
	if change.ExtractedContent != nil && record.ExtractedContent == nil {
		record.ExtractedContent = change.ExtractedContent
	}
	record.UpdatedAt = time.Now().UTC()
	f.records[id] = record
	f.writes++
	return &record, nil
}

func (f *fakeRecords) FailStale(_ context.Context, cutoff time.Time, message string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, record := range f.records {
		stuck := false
		switch record.Status {
		case importer.StatusProcessing:
			stuck = record.ProcessingStarted != nil && record.ProcessingStarted.Before(cutoff)
		case importer.StatusPending, importer.StatusUploading:
			stuck = record.CreatedAt.Before(cutoff)
		}
		if stuck {
			record.Status = importer.StatusFailed
			record.ErrorMessage = message
			f.records[id] = record
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRecords) get(t *testing.T, id string) importer.Record {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	require.True(t, ok, "record %s not stored", id)
	return record
}

// # Object Store Fake

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string, maxBytes int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	if int64(len(data)) > maxBytes {
		return nil, errors.New("object too large")
	}
	return data, nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// # Queue Fake

type fakeQueue struct {
	ids []string
	err error
}

func (f *fakeQueue) Enqueue(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, id)
	return nil
}

// # Document Builders

const (
	nsMain    = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsDrawing = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsPicture = "http://schemas.openxmlformats.org/drawingml/2006/picture"
)

const testStyles = `<?xml version="1.0" encoding="UTF-8"?>
<w:styles xmlns:w="` + nsMain + `">
  <w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>
  <w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>
</w:styles>`

// buildDocx zips a minimal .docx around body. extra adds or replaces parts.
func buildDocx(t *testing.T, body string, extra map[string]string) []byte {
	t.Helper()

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="` + nsMain + `" xmlns:r="` + nsRels + `" xmlns:a="` + nsDrawing + `" xmlns:pic="` + nsPicture + `">
<w:body>` + body + `</w:body>
</w:document>`,
		"word/styles.xml": testStyles,
	}
	for name, content := range extra {
		parts[name] = content
	}
	return zipParts(t, parts)
}

// zipParts writes an archive with the given file contents.
func zipParts(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buffer bytes.Buffer
	archive := zip.NewWriter(&buffer)
	for name, content := range parts {
		w, err := archive.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, archive.Close())
	return buffer.Bytes()
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func heading(level int, text string) string {
	return fmt.Sprintf(`<w:p><w:pPr><w:pStyle w:val="Heading%d"/></w:pPr><w:r><w:t>%s</w:t></w:r></w:p>`, level, text)
}

// # Spreadsheet Builders

func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()

	book := excelize.NewFile()
	defer book.Close()

	require.NoError(t, book.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		values := row
		require.NoError(t, book.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &values))
	}

	buffer, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buffer.Bytes()
}

func header() []any {
	return []any{"Chapter Number", "Title", "Content", "Is Premium", "Is Published"}
}
