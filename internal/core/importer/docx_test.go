// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/core/importer"
	"github.com/taibuivan/yomira-import/internal/platform/apperr"
)

const listItem = `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>%s</w:t></w:r></w:p>`

const imageRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/map" TargetMode="External"/>
  <Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

const drawing = `<w:r><w:drawing><a:graphic><a:graphicData><pic:pic><pic:blipFill><a:blip r:embed="rId2"/></pic:blipFill></pic:pic></a:graphicData></a:graphic></w:drawing></w:r>`

// recordingSink captures images handed over during conversion.
type recordingSink struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (s *recordingSink) StoreImage(_ context.Context, name, contentType string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name+"|"+contentType)
	return "https://cdn.test/img/" + name, nil
}

/*
TestConvertDocument_Markup maps styles, emphasis, lists and tables onto markup.
*/
func TestConvertDocument_Markup(t *testing.T) {
	body := heading(2, "Intro") +
		`<w:p><w:r><w:t xml:space="preserve">Hello </w:t></w:r>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>brave</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve"> </w:t></w:r>` +
		`<w:r><w:rPr><w:i/></w:rPr><w:t>new</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>` +
		fmt.Sprintf(listItem, "one") + fmt.Sprintf(listItem, "two") +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

	conversion, err := importer.ConvertDocument(context.Background(), "Chapter 12: The Fall.docx", buildDocx(t, body, nil), importer.ConvertOptions{})
	require.NoError(t, err)
	require.Len(t, conversion.Drafts, 1)

	draft := conversion.Drafts[0]
	assert.Equal(t, 12.0, draft.ChapterNumber)
	assert.Equal(t, "The Fall", draft.Title)
	assert.Equal(t, 8, draft.WordCount)
	assert.False(t, draft.IsPublished)

	assert.Contains(t, draft.Content, "<h2>Intro</h2>")
	assert.Contains(t, draft.Content, "Hello <strong>brave</strong> <em>new</em> world")
	assert.Contains(t, draft.Content, "<ul><li>one</li><li>two</li></ul>")
	assert.Contains(t, draft.Content, "<td><p>cell</p></td>")
	assert.NotContains(t, draft.Content, "<p>   </p>")
	assert.Equal(t, strings.TrimSpace(draft.Content), draft.Content)
}

/*
TestConvertDocument_DefaultsToChapterOne applies when the filename has no number.
*/
func TestConvertDocument_DefaultsToChapterOne(t *testing.T) {
	conversion, err := importer.ConvertDocument(context.Background(), "manuscript.docx", buildDocx(t, para("Once upon a time"), nil), importer.ConvertOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, conversion.Drafts[0].ChapterNumber)
	assert.Equal(t, "manuscript", conversion.Drafts[0].Title)
	assert.Equal(t, 4, conversion.Drafts[0].WordCount)
}

/*
TestConvertDocument_LinksAndImages stores each distinct image once.
*/
func TestConvertDocument_LinksAndImages(t *testing.T) {
	body := `<w:p><w:hyperlink r:id="rId1"><w:r><w:t>the map</w:t></w:r></w:hyperlink>` + drawing + `</w:p>` +
		`<w:p>` + drawing + `</w:p>`
	data := buildDocx(t, body, map[string]string{
		"word/_rels/document.xml.rels": imageRels,
		"word/media/image1.png":        "\x89PNG\r\n\x1a\nfake",
	})

	t.Run("object_storage", func(t *testing.T) {
		sink := &recordingSink{}
		conversion, err := importer.ConvertDocument(context.Background(), "1 - Maps.docx", data, importer.ConvertOptions{Images: sink})
		require.NoError(t, err)

		assert.Equal(t, 1, conversion.ImagesExtracted)
		assert.Equal(t, []string{"image1.png|image/png"}, sink.names)

		content := conversion.Drafts[0].Content
		assert.Contains(t, content, `href="https://example.com/map"`)
		assert.Contains(t, content, `src="https://cdn.test/img/image1.png"`)
		assert.Equal(t, 2, conversion.Drafts[0].WordCount)
	})

	t.Run("inline_preview", func(t *testing.T) {
		conversion, err := importer.ConvertDocument(context.Background(), "1 - Maps.docx", data, importer.ConvertOptions{})
		require.NoError(t, err)
		assert.Contains(t, conversion.Drafts[0].Content, `src="data:image/png;base64,`)
	})

	t.Run("sink_failure", func(t *testing.T) {
		sink := &recordingSink{err: errors.New("bucket unavailable")}
		_, err := importer.ConvertDocument(context.Background(), "1 - Maps.docx", data, importer.ConvertOptions{Images: sink})
		require.Error(t, err)
		assert.False(t, apperr.IsAppError(err))
	})
}

/*
TestConvertDocument_SplitByHeading numbers consecutive chapters from the base number.
*/
func TestConvertDocument_SplitByHeading(t *testing.T) {
	body := para("Preface words here") +
		heading(1, "Arrival") + para("a b") +
		heading(1, "Empty") +
		heading(1, "Departure") + para("c d e")
	data := buildDocx(t, body, nil)

	conversion, err := importer.ConvertDocument(context.Background(), "Chapter 3 - Journey.docx", data, importer.ConvertOptions{SplitByHeading: true})
	require.NoError(t, err)
	require.Len(t, conversion.Drafts, 3)

	assert.Equal(t, "Journey", conversion.Drafts[0].Title)
	assert.Equal(t, 3.0, conversion.Drafts[0].ChapterNumber)
	assert.Equal(t, "Arrival", conversion.Drafts[1].Title)
	assert.Equal(t, 4.0, conversion.Drafts[1].ChapterNumber)
	assert.Equal(t, 2, conversion.Drafts[1].WordCount)
	assert.Equal(t, "Departure", conversion.Drafts[2].Title)
	assert.Equal(t, 5.0, conversion.Drafts[2].ChapterNumber)
	assert.NotContains(t, conversion.Drafts[2].Content, "<h1>")

	start := 10.0
	conversion, err = importer.ConvertDocument(context.Background(), "Chapter 3 - Journey.docx", data, importer.ConvertOptions{SplitByHeading: true, StartingChapterNumber: &start})
	require.NoError(t, err)
	assert.Equal(t, 10.0, conversion.Drafts[0].ChapterNumber)
	assert.Equal(t, 12.0, conversion.Drafts[2].ChapterNumber)
}

/*
TestConvertDocument_Errors rejects undecodable and empty documents.
*/
func TestConvertDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		message string
	}{
		{"not_a_zip", []byte("plain text pretending to be docx"), "file is not a valid .docx document"},
		{"missing_document_part", zipParts(t, map[string]string{"word/styles.xml": testStyles}), "file is not a valid .docx document"},
		{"malformed_xml", buildDocx(t, "<w:p><w:r>", nil), "file is not a valid .docx document"},
		{"empty_body", buildDocx(t, para("  "), nil), "document contains no readable content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.ConvertDocument(context.Background(), "Chapter 1 - X.docx", tt.data, importer.ConvertOptions{})
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "CONVERSION_ERROR", appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}
