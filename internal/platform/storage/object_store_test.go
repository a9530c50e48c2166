// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-import/internal/platform/storage"
)

/*
TestPathStyleURL verifies bucket/key joining and segment escaping.
*/
func TestPathStyleURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"plain", "http://localhost:9000", "imports/abc/source.docx", "http://localhost:9000/media/imports/abc/source.docx"},
		{"trailing_slash", "https://cdn.example.com/", "a/b.png", "https://cdn.example.com/media/a/b.png"},
		{"escaped_segment", "http://localhost:9000", "imports/abc/images/my image.png", "http://localhost:9000/media/imports/abc/images/my%20image.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storage.PathStyleURL(tt.base, "media", tt.key))
		})
	}
}
