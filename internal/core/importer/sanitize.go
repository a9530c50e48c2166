// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/taibuivan/yomira-import/pkg/readtime"
)

// # Markup Policies

// Policies are safe for concurrent use once built.
var (
	markupPolicy = newMarkupPolicy()
	textPolicy   = newTextPolicy()
)

func newMarkupPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	return policy
}

func newTextPolicy() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
}

// SanitizeMarkup strips anything outside the chapter markup allow-list.
func SanitizeMarkup(markup string) string {
	return strings.TrimSpace(markupPolicy.Sanitize(markup))
}

// CountMarkupWords counts whitespace-delimited words in the visible text of markup.
func CountMarkupWords(markup string) int {
	return readtime.CountWords(html.UnescapeString(textPolicy.Sanitize(markup)))
}
