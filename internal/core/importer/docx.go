// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/pkg/pointer"
	"github.com/taibuivan/yomira-import/pkg/readtime"
)

// # Document Conversion

// ImageSink stores an embedded image and returns the URL the markup should reference.
type ImageSink interface {
	StoreImage(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// ConvertOptions tunes [ConvertDocument].
type ConvertOptions struct {
	// StartingChapterNumber overrides the filename number when positive.
	StartingChapterNumber *float64

	// SplitByHeading starts a new chapter at every top-level heading.
	SplitByHeading bool

	// Images receives embedded images. Nil inlines them as data URIs.
	Images ImageSink
}

// Conversion is the outcome of converting one manuscript.
type Conversion struct {
	Drafts          []ChapterDraft
	ImagesExtracted int
}

/*
ConvertDocument converts a .docx manuscript into chapter drafts.

Description: The number and title come from the filename (number defaults to 1).
Paragraph styles map onto headings, numbering onto lists and run properties onto
inline emphasis. The markup is sanitized and trimmed; the word count is taken from
the document text.

Parameters:
  - context: context.Context (Bounds image uploads)
  - filename: string
  - data: []byte (Raw .docx bytes)
  - options: ConvertOptions

Returns:
  - *Conversion: One draft, or one per top-level heading when splitting
  - error: apperr.ConversionError for undecodable or empty documents, raw errors from the image sink
*/
func ConvertDocument(context context.Context, filename string, data []byte, options ConvertOptions) (*Conversion, error) {
	pkg, err := openDocx(data)
	if err != nil {
		return nil, apperr.ConversionError("file is not a valid .docx document", err)
	}

	root, err := pkg.parsePart(partDocument)
	if err != nil {
		return nil, apperr.ConversionError("file is not a valid .docx document", err)
	}
	body := root.child("body")
	if body == nil {
		return nil, apperr.ConversionError("document has no body", nil)
	}

	conv := &converter{
		ctx:    context,
		pkg:    pkg,
		sink:   options.Images,
		images: map[string]string{},
	}
	blocks := conv.blocks(body.Children)
	if conv.err != nil {
		return nil, fmt.Errorf("docx: extract images: %w", conv.err)
	}

	// Numbering
	meta := ParseFilename(filename)
	base := pointer.Fallback(meta.Number, 1)
	if start := pointer.Val(options.StartingChapterNumber); start > 0 {
		base = start
	}

	var drafts []ChapterDraft
	for _, section := range splitSections(blocks, options.SplitByHeading) {
		content, err := renderBlocks(section.blocks)
		if err != nil {
			return nil, apperr.ConversionError("document could not be rendered", err)
		}
		if content == "" {
			continue
		}

		title := section.title
		if title == "" {
			title = meta.Title
		}

		drafts = append(drafts, ChapterDraft{
			ChapterNumber: base + float64(len(drafts)),
			Title:         title,
			Content:       content,
			WordCount:     readtime.CountWords(section.text()),
			IsPremium:     false,
			IsPublished:   false,
		})
	}

	if len(drafts) == 0 {
		return nil, apperr.ConversionError("document contains no readable content", nil)
	}
	return &Conversion{Drafts: drafts, ImagesExtracted: len(conv.images)}, nil
}

// # Blocks & Sections

// block is one top-level markup element with its plain text.
type block struct {
	node    *html.Node
	heading int // 0 for non-headings
	text    string
}

type section struct {
	title  string
	blocks []block
}

func (s section) text() string {
	parts := make([]string, 0, len(s.blocks))
	for _, b := range s.blocks {
		parts = append(parts, b.text)
	}
	return strings.Join(parts, "\n")
}

// splitSections cuts at level-1 headings. The heading becomes the section title.
func splitSections(blocks []block, split bool) []section {
	if !split {
		return []section{{blocks: blocks}}
	}

	sections := []section{{}}
	for _, b := range blocks {
		if b.heading == 1 {
			sections = append(sections, section{title: strings.TrimSpace(b.text)})
			continue
		}
		current := &sections[len(sections)-1]
		current.blocks = append(current.blocks, b)
	}
	return sections
}

func renderBlocks(blocks []block) (string, error) {
	var builder strings.Builder
	for _, b := range blocks {
		if err := html.Render(&builder, b.node); err != nil {
			return "", err
		}
		builder.WriteByte('\n')
	}
	return SanitizeMarkup(builder.String()), nil
}

// # Converter

type converter struct {
	ctx    context.Context
	pkg    *docxPackage
	sink   ImageSink
	images map[string]string // archive path → src
	err    error
}

// paragraph accumulates the inline content of one w:p.
type paragraph struct {
	inline []*html.Node
	text   string
}

func (p *paragraph) empty() bool {
	return len(p.inline) == 0
}

func (conv *converter) blocks(nodes []*xmlNode) []block {
	var out []block
	var list *html.Node
	var listText []string

	flush := func() {
		if list != nil {
			out = append(out, block{node: list, text: strings.Join(listText, "\n")})
			list, listText = nil, nil
		}
	}

	for _, node := range nodes {
		switch node.Name {
		case "p":
			para := conv.paragraph(node)
			if para.empty() {
				continue
			}

			level := conv.headingLevel(node)
			if kind := conv.listKind(node); level == 0 && kind != "" {
				if list == nil || list.Data != kind {
					flush()
					list = element(kind)
				}
				item := element("li")
				appendChildren(item, para.inline)
				list.AppendChild(item)
				listText = append(listText, para.text)
				continue
			}

			flush()
			tag := "p"
			if level > 0 {
				tag = "h" + strconv.Itoa(level)
			}
			el := element(tag)
			appendChildren(el, para.inline)
			out = append(out, block{node: el, heading: level, text: para.text})

		case "tbl":
			flush()
			if b, ok := conv.table(node); ok {
				out = append(out, b)
			}

		case "sdt":
			flush()
			out = append(out, conv.blocks(node.child("sdtContent").childrenOrNil())...)
		}
	}

	flush()
	return out
}

func (conv *converter) table(tbl *xmlNode) (block, bool) {
	table := element("table")
	tbody := element("tbody")
	table.AppendChild(tbody)

	var text []string
	for _, tr := range tbl.children("tr") {
		row := element("tr")
		for _, tc := range tr.children("tc") {
			cell := element("td")
			for _, b := range conv.blocks(tc.Children) {
				cell.AppendChild(b.node)
				text = append(text, b.text)
			}
			row.AppendChild(cell)
		}
		tbody.AppendChild(row)
	}

	return block{node: table, text: strings.Join(text, "\n")}, tbody.FirstChild != nil
}

func (conv *converter) paragraph(p *xmlNode) *paragraph {
	para := &paragraph{}
	conv.inline(p.Children, para)
	if strings.TrimSpace(para.text) == "" && !containsImage(para.inline) {
		return &paragraph{}
	}
	return para
}

func (conv *converter) inline(nodes []*xmlNode, para *paragraph) {
	for _, node := range nodes {
		switch node.Name {
		case "pPr", "rPr", "del", "moveFrom", "proofErr", "bookmarkStart", "bookmarkEnd":
		case "r":
			conv.run(node, para)
		case "hyperlink":
			inner := &paragraph{}
			conv.inline(node.Children, inner)
			para.text += inner.text

			href := conv.pkg.externalTarget(node.attr("id"))
			if href == "" {
				para.inline = append(para.inline, inner.inline...)
				continue
			}
			anchor := element("a")
			anchor.Attr = []html.Attribute{{Key: "href", Val: href}}
			appendChildren(anchor, inner.inline)
			para.inline = append(para.inline, anchor)
		default:
			// ins, smartTag, fldSimple, sdtContent carry runs of their own
			conv.inline(node.Children, para)
		}
	}
}

func (conv *converter) run(r *xmlNode, para *paragraph) {
	style := parseRunStyle(r.child("rPr"))

	for _, node := range r.Children {
		switch node.Name {
		case "t":
			if node.Text == "" {
				continue
			}
			para.inline = append(para.inline, style.wrap(node.Text))
			para.text += node.Text
		case "tab":
			para.inline = append(para.inline, textNode(" "))
			para.text += " "
		case "br", "cr":
			if node.attr("type") == "page" {
				continue
			}
			para.inline = append(para.inline, element("br"))
			para.text += "\n"
		case "drawing", "pict", "object":
			for _, relID := range imageRelations(node) {
				if img := conv.image(relID); img != nil {
					para.inline = append(para.inline, img)
				}
			}
		}
	}
}

// # Paragraph Properties

func (conv *converter) headingLevel(p *xmlNode) int {
	props := p.child("pPr")
	if props == nil {
		return 0
	}

	styleID := props.child("pStyle").attr("val")
	name, ok := conv.pkg.styles[styleID]
	if !ok {
		name = strings.ToLower(styleID)
	}

	switch {
	case name == "title":
		return 1
	case strings.HasPrefix(name, "heading"):
		level, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(name, "heading")))
		if err == nil && level > 0 {
			return min(level, 6)
		}
	}

	if outline := props.child("outlineLvl"); outline != nil {
		if level, err := strconv.Atoi(outline.attr("val")); err == nil && level >= 0 && level < 9 {
			return min(level+1, 6)
		}
	}
	return 0
}

// listKind returns "ul", "ol" or "" for paragraphs outside a list.
func (conv *converter) listKind(p *xmlNode) string {
	numID := p.child("pPr").child("numPr").child("numId").attr("val")
	if numID == "" || numID == "0" {
		return ""
	}

	switch conv.pkg.numFormats[numID] {
	case "", "bullet", "none":
		return "ul"
	default:
		return "ol"
	}
}

// # Run Properties

type runStyle struct {
	bold, italic, underline, strike bool
	vertAlign                       string
}

func parseRunStyle(props *xmlNode) runStyle {
	if props == nil {
		return runStyle{}
	}
	style := runStyle{
		bold:      onOff(props.child("b")),
		italic:    onOff(props.child("i")),
		strike:    onOff(props.child("strike")) || onOff(props.child("dstrike")),
		vertAlign: props.child("vertAlign").attr("val"),
	}
	if u := props.child("u"); u != nil {
		style.underline = u.attr("val") != "none"
	}
	return style
}

// onOff reads an OOXML toggle property. Presence without a value means on.
func onOff(node *xmlNode) bool {
	if node == nil {
		return false
	}
	switch strings.ToLower(node.attr("val")) {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}

func (style runStyle) wrap(text string) *html.Node {
	node := textNode(text)

	var tags []string
	switch style.vertAlign {
	case "superscript":
		tags = append(tags, "sup")
	case "subscript":
		tags = append(tags, "sub")
	}
	if style.underline {
		tags = append(tags, "u")
	}
	if style.strike {
		tags = append(tags, "s")
	}
	if style.italic {
		tags = append(tags, "em")
	}
	if style.bold {
		tags = append(tags, "strong")
	}

	for _, tag := range tags {
		wrapper := element(tag)
		wrapper.AppendChild(node)
		node = wrapper
	}
	return node
}

// # Images

// imageRelations collects blip and VML image references under a drawing.
func imageRelations(node *xmlNode) []string {
	var ids []string
	node.descendants(func(n *xmlNode) {
		switch n.Name {
		case "blip":
			if id := n.attr("embed"); id != "" {
				ids = append(ids, id)
			}
		case "imagedata":
			if id := n.attr("id"); id != "" {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// image resolves a relationship to an <img>. Repeated references reuse the first upload.
func (conv *converter) image(relID string) *html.Node {
	if conv.err != nil {
		return nil
	}

	name, ok := conv.pkg.mediaPath(relID)
	if !ok {
		return nil
	}

	src, seen := conv.images[name]
	if !seen {
		data, err := conv.pkg.read(name, maxMediaPartBytes)
		if err != nil {
			// Broken media references are dropped, not fatal
			return nil
		}

		contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if conv.sink == nil {
			src = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
		} else {
			src, err = conv.sink.StoreImage(conv.ctx, path.Base(name), contentType, data)
			if err != nil {
				conv.err = err
				return nil
			}
		}
		conv.images[name] = src
	}

	img := element("img")
	img.Attr = []html.Attribute{{Key: "src", Val: src}, {Key: "alt", Val: ""}}
	return img
}

// # Node Helpers

func element(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func appendChildren(parent *html.Node, children []*html.Node) {
	for _, child := range children {
		parent.AppendChild(child)
	}
}

func containsImage(nodes []*html.Node) bool {
	for _, node := range nodes {
		if node.DataAtom == atom.Img {
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if containsImage([]*html.Node{c}) {
				return true
			}
		}
	}
	return false
}
