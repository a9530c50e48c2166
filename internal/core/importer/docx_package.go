// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// # OOXML Package

const (
	partDocument      = "word/document.xml"
	partStyles        = "word/styles.xml"
	partNumbering     = "word/numbering.xml"
	partDocumentRels  = "word/_rels/document.xml.rels"
	maxXMLPartBytes   = 64 << 20
	maxMediaPartBytes = 20 << 20
)

var (
	errMissingPart  = errors.New("docx: part not found")
	errPartTooLarge = errors.New("docx: part exceeds size limit")
)

// xmlNode is a namespace-agnostic element tree. Only local names are kept.
type xmlNode struct {
	Name     string
	Attrs    map[string]string
	Children []*xmlNode
	Text     string
}

func (node *xmlNode) child(name string) *xmlNode {
	if node == nil {
		return nil
	}
	for _, c := range node.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (node *xmlNode) children(name string) []*xmlNode {
	var out []*xmlNode
	for _, c := range node.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (node *xmlNode) childrenOrNil() []*xmlNode {
	if node == nil {
		return nil
	}
	return node.Children
}

func (node *xmlNode) attr(name string) string {
	if node == nil {
		return ""
	}
	return node.Attrs[name]
}

// descendants walks the subtree depth-first.
func (node *xmlNode) descendants(visit func(*xmlNode)) {
	for _, c := range node.Children {
		visit(c)
		c.descendants(visit)
	}
}

func parseXML(r io.Reader) (*xmlNode, error) {
	decoder := xml.NewDecoder(r)
	root := &xmlNode{}
	stack := []*xmlNode{root}

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			node := &xmlNode{Name: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				node.Attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			stack[len(stack)-1].Text += string(t)
		}
	}

	if len(root.Children) == 0 {
		return nil, errors.New("docx: empty xml part")
	}
	return root.Children[0], nil
}

// relationship is one entry of a .rels part.
type relationship struct {
	Target   string
	External bool
}

// docxPackage is an opened .docx archive with its lookup tables resolved.
type docxPackage struct {
	files      map[string]*zip.File
	rels       map[string]relationship
	styles     map[string]string // styleId → lower-cased style name
	numFormats map[string]string // numId → level-0 numFmt
}

func openDocx(data []byte) (*docxPackage, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pkg := &docxPackage{
		files:      make(map[string]*zip.File, len(reader.File)),
		rels:       map[string]relationship{},
		styles:     map[string]string{},
		numFormats: map[string]string{},
	}
	for _, file := range reader.File {
		pkg.files[strings.TrimPrefix(file.Name, "/")] = file
	}

	if _, ok := pkg.files[partDocument]; !ok {
		return nil, fmt.Errorf("%w: %s", errMissingPart, partDocument)
	}

	// Optional parts. Missing ones leave their table empty.
	if err := pkg.loadRelationships(); err != nil {
		return nil, err
	}
	if err := pkg.loadStyles(); err != nil {
		return nil, err
	}
	if err := pkg.loadNumbering(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (pkg *docxPackage) read(name string, limit int64) ([]byte, error) {
	file, ok := pkg.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingPart, name)
	}
	if file.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s", errPartTooLarge, name)
	}

	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", errPartTooLarge, name)
	}
	return data, nil
}

func (pkg *docxPackage) parsePart(name string) (*xmlNode, error) {
	data, err := pkg.read(name, maxXMLPartBytes)
	if err != nil {
		return nil, err
	}
	root, err := parseXML(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("docx: parse %s: %w", name, err)
	}
	return root, nil
}

func (pkg *docxPackage) parseOptionalPart(name string) (*xmlNode, error) {
	if _, ok := pkg.files[name]; !ok {
		return nil, nil
	}
	return pkg.parsePart(name)
}

func (pkg *docxPackage) loadRelationships() error {
	root, err := pkg.parseOptionalPart(partDocumentRels)
	if root == nil || err != nil {
		return err
	}
	for _, rel := range root.children("Relationship") {
		pkg.rels[rel.attr("Id")] = relationship{
			Target:   rel.attr("Target"),
			External: strings.EqualFold(rel.attr("TargetMode"), "External"),
		}
	}
	return nil
}

func (pkg *docxPackage) loadStyles() error {
	root, err := pkg.parseOptionalPart(partStyles)
	if root == nil || err != nil {
		return err
	}
	for _, style := range root.children("style") {
		if name := style.child("name").attr("val"); name != "" {
			pkg.styles[style.attr("styleId")] = strings.ToLower(name)
		}
	}
	return nil
}

func (pkg *docxPackage) loadNumbering() error {
	root, err := pkg.parseOptionalPart(partNumbering)
	if root == nil || err != nil {
		return err
	}

	abstractFormats := map[string]string{}
	for _, abstract := range root.children("abstractNum") {
		for _, level := range abstract.children("lvl") {
			if level.attr("ilvl") == "0" {
				abstractFormats[abstract.attr("abstractNumId")] = level.child("numFmt").attr("val")
			}
		}
	}
	for _, num := range root.children("num") {
		pkg.numFormats[num.attr("numId")] = abstractFormats[num.child("abstractNumId").attr("val")]
	}
	return nil
}

// mediaPath resolves an internal relationship to its archive path.
func (pkg *docxPackage) mediaPath(relID string) (string, bool) {
	rel, ok := pkg.rels[relID]
	if !ok || rel.External || rel.Target == "" {
		return "", false
	}
	if strings.HasPrefix(rel.Target, "/") {
		return strings.TrimPrefix(rel.Target, "/"), true
	}
	return path.Clean(path.Join("word", rel.Target)), true
}

// externalTarget resolves a hyperlink relationship.
func (pkg *docxPackage) externalTarget(relID string) string {
	rel, ok := pkg.rels[relID]
	if !ok || !rel.External {
		return ""
	}
	return rel.Target
}
