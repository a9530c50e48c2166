// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/database/schema"
	"github.com/taibuivan/yomira-import/internal/platform/dberr"
)

// Partial unique indexes declared in 000001_core_novel_chapter.
const (
	constraintNumber = "uq_chapter_novel_number"
	constraintSlug   = "uq_chapter_novel_slug"
)

// # PostgreSQL Repositories

// chapterRepository implements the [Repository] interface using pgx.
type chapterRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed chapter store.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &chapterRepository{pool: pool}
}

// # Repository Implementation

// NovelExists checks the novel table, ignoring soft-deleted rows.
func (repository *chapterRepository) NovelExists(context context.Context, novelID string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s IS NULL)`,
		schema.CoreNovel.Table, schema.CoreNovel.ID, schema.CoreNovel.DeletedAt,
	)

	var exists bool
	if err := repository.pool.QueryRow(context, query, novelID).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: failed to check novel: %w", err)
	}
	return exists, nil
}

/*
ExistingNumbers resolves collisions for a batch of proposed numbers in one round-trip.

Description: Numbers are compared as NUMERIC so that 1.50 and 1.5 collide.

Parameters:
  - context: context.Context
  - novelID: string
  - numbers: []float64

Returns:
  - []float64: Taken numbers, ascending
  - error: Query failures
*/
func (repository *chapterRepository) ExistingNumbers(context context.Context, novelID string, numbers []float64) ([]float64, error) {
	if len(numbers) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT %[1]s::float8
		FROM %[2]s
		WHERE %[3]s = $1 AND %[1]s = ANY($2::numeric[]) AND %[4]s IS NULL
		ORDER BY 1
	`,
		schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Table,
		schema.CoreChapter.NovelID,
		schema.CoreChapter.DeletedAt,
	)

	rows, err := repository.pool.Query(context, query, novelID, numbers)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list chapter numbers: %w", err)
	}
	defer rows.Close()

	var taken []float64
	for rows.Next() {
		var number float64
		if err := rows.Scan(&number); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan chapter number: %w", err)
		}
		taken = append(taken, number)
	}
	return taken, rows.Err()
}

// MaxNumber returns 0 for a novel without live chapters.
func (repository *chapterRepository) MaxNumber(context context.Context, novelID string) (float64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0)::float8 FROM %s WHERE %s = $1 AND %s IS NULL`,
		schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Table,
		schema.CoreChapter.NovelID,
		schema.CoreChapter.DeletedAt,
	)

	var maxNumber float64
	if err := repository.pool.QueryRow(context, query, novelID).Scan(&maxNumber); err != nil {
		return 0, fmt.Errorf("postgres: failed to read max chapter number: %w", err)
	}
	return maxNumber, nil
}

/*
Create inserts a new chapter row.

Description: Timestamps are assigned by the database. Unique index
violations are translated into readable conflicts.

Parameters:
  - context: context.Context
  - chapter: *Chapter (ID must be pre-assigned)

Returns:
  - error: apperr.Conflict on duplicates
*/
func (repository *chapterRepository) Create(context context.Context, chapter *Chapter) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING %s, %s
	`,
		schema.CoreChapter.Table,
		schema.CoreChapter.ID, schema.CoreChapter.NovelID, schema.CoreChapter.ChapterNumber,
		schema.CoreChapter.Title, schema.CoreChapter.Slug, schema.CoreChapter.Content,
		schema.CoreChapter.WordCount, schema.CoreChapter.EstimatedReadTime, schema.CoreChapter.Status,
		schema.CoreChapter.IsPublished, schema.CoreChapter.IsPremium, schema.CoreChapter.DisplayOrder,
		schema.CoreChapter.PublishedAt,
		schema.CoreChapter.CreatedAt, schema.CoreChapter.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		chapter.ID, chapter.NovelID, chapter.Number,
		chapter.Title, chapter.Slug, chapter.Content,
		chapter.WordCount, chapter.EstimatedReadTime, string(chapter.Status),
		chapter.IsPublished, chapter.IsPremium, chapter.DisplayOrder,
		chapter.PublishedAt,
	).Scan(&chapter.CreatedAt, &chapter.UpdatedAt)

	if err != nil {
		return translateInsertError(err)
	}
	return nil
}

// TouchNovel bumps core.novel.updatedat.
func (repository *chapterRepository) TouchNovel(context context.Context, novelID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = NOW() WHERE %s = $1 AND %s IS NULL`,
		schema.CoreNovel.Table, schema.CoreNovel.UpdatedAt, schema.CoreNovel.ID, schema.CoreNovel.DeletedAt,
	)

	result, err := repository.pool.Exec(context, query, novelID)
	if err != nil {
		return fmt.Errorf("postgres: failed to touch novel: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Novel")
	}
	return nil
}

// translateInsertError names the colliding field for unique violations.
func translateInsertError(err error) error {
	switch dberr.ConstraintName(err) {
	case constraintNumber:
		return apperr.Conflict("chapter number already exists").WithCause(err)
	case constraintSlug:
		return apperr.Conflict("chapter slug already exists").WithCause(err)
	default:
		return dberr.Wrap(err, "Chapter")
	}
}
