// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/dberr"
)

/*
TestWrap classifies raw driver errors into application errors.
*/
func TestWrap(t *testing.T) {
	uniqueErr := &pgconn.PgError{Code: "23505", ConstraintName: "uq_chapter_novel_slug"}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no_rows", pgx.ErrNoRows, http.StatusNotFound},
		{"wrapped_no_rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), http.StatusNotFound},
		{"unique_violation", uniqueErr, http.StatusConflict},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := apperr.As(dberr.Wrap(tt.err, "Chapter"))
			require.NotNil(t, ae)
			assert.Equal(t, tt.status, ae.HTTPStatus)
		})
	}

	assert.Nil(t, dberr.Wrap(nil, "Chapter"))
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert: %w", uniqueErr)))
	assert.False(t, dberr.IsUniqueViolation(pgx.ErrNoRows))
	assert.Equal(t, "uq_chapter_novel_slug", dberr.ConstraintName(fmt.Errorf("insert: %w", uniqueErr)))
	assert.Empty(t, dberr.ConstraintName(pgx.ErrNoRows))
}
