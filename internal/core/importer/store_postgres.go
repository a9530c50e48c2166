// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/database/schema"
	"github.com/taibuivan/yomira-import/internal/platform/dberr"
)

const resourceImportRecord = "Import record"

// # PostgreSQL Repository

// recordRepository implements [RecordRepository] using pgx.
type recordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository constructs a PostgreSQL backed import record store.
func NewRecordRepository(pool *pgxpool.Pool) RecordRepository {
	return &recordRepository{pool: pool}
}

var recordColumns = strings.Join(schema.CoreImportRecord.Columns(), ", ")

/*
Create inserts the record with its settings and optional preview snapshot.
*/
func (repository *recordRepository) Create(context context.Context, record *Record) error {
	settings, err := json.Marshal(record.Settings)
	if err != nil {
		return fmt.Errorf("postgres: encode import settings: %w", err)
	}
	snapshot, err := encodeSnapshot(record.ExtractedContent)
	if err != nil {
		return err
	}

	table := schema.CoreImportRecord
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s, %s
	`,
		table.Table,
		table.ID, table.NovelID, table.UploadedBy, table.Filename, table.OriginalSize, table.MimeType,
		table.StorageKey, table.Status, table.ExtractedContent, table.ImportSettings, table.ErrorMessage,
		table.ChaptersCreated,
		table.CreatedAt, table.UpdatedAt,
	)

	err = repository.pool.QueryRow(context, query,
		record.ID, record.NovelID, record.UploadedBy, record.Filename, record.OriginalSize, record.MimeType,
		nullable(record.StorageKey), string(record.Status), snapshot, settings, nullable(record.ErrorMessage),
		record.ChaptersCreated,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, resourceImportRecord)
	}
	return nil
}

// FindByID loads one record by primary key.
func (repository *recordRepository) FindByID(context context.Context, id string) (*Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		recordColumns, schema.CoreImportRecord.Table, schema.CoreImportRecord.ID,
	)

	record, err := scanRecord(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, resourceImportRecord)
	}
	return record, nil
}

/*
Transition performs a conditional UPDATE keyed on the expected prior status.

Description: The guard and the write happen in one statement, so two workers
racing on the same record cannot both win. When no row matches, a follow-up
read tells a missing record apart from an illegal move.

Parameters:
  - context: context.Context
  - id: string
  - change: Transition

Returns:
  - *Record: Row as written
  - error: apperr.NotFound or apperr.InvalidTransition
*/
func (repository *recordRepository) Transition(context context.Context, id string, change Transition) (*Record, error) {
	table := schema.CoreImportRecord

	from := make([]string, len(change.From))
	for i, status := range change.From {
		from[i] = string(status)
	}

	sets := []string{table.Status + " = $3", table.UpdatedAt + " = NOW()"}
	args := []any{id, from, string(change.To)}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if change.ErrorMessage != nil {
		set(table.ErrorMessage, *change.ErrorMessage)
	}
	if change.ChaptersCreated != nil {
		set(table.ChaptersCreated, *change.ChaptersCreated)
	}
	if change.ImagesExtracted != nil {
		set(table.ImagesExtracted, *change.ImagesExtracted)
	}
	if change.ProcessingStarted != nil {
		set(table.ProcessingStarted, *change.ProcessingStarted)
	}
	if change.ProcessingCompleted != nil {
		set(table.ProcessingCompleted, *change.ProcessingCompleted)
	}
	if change.ExtractedContent != nil {
		snapshot, err := encodeSnapshot(change.ExtractedContent)
		if err != nil {
			return nil, err
		}
		args = append(args, snapshot)
		sets = append(sets, fmt.Sprintf("%[1]s = COALESCE(%[1]s, $%[2]d)", table.ExtractedContent, len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE %s SET %s
		WHERE %s = $1 AND %s = ANY($2::text[])
		RETURNING %s
	`,
		table.Table, strings.Join(sets, ", "),
		table.ID, table.Status,
		recordColumns,
	)

	record, err := scanRecord(repository.pool.QueryRow(context, query, args...))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, dberr.Wrap(err, resourceImportRecord)
	}

	// Guard failed: missing record or wrong state
	if _, findErr := repository.FindByID(context, id); findErr != nil {
		return nil, findErr
	}
	return nil, apperr.InvalidTransition(resourceImportRecord, string(change.To))
}

// FailStale closes records whose worker disappeared mid-processing, and uploads
// that never reached the queue.
func (repository *recordRepository) FailStale(context context.Context, cutoff time.Time, message string) ([]string, error) {
	table := schema.CoreImportRecord
	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s = $1, %[3]s = $2, %[4]s = NOW(), %[5]s = NOW()
		WHERE (%[2]s = $3 AND %[6]s < $4)
		   OR (%[2]s IN ($5, $6) AND %[8]s < $4)
		RETURNING %[7]s
	`,
		table.Table, table.Status, table.ErrorMessage, table.ProcessingCompleted, table.UpdatedAt,
		table.ProcessingStarted, table.ID, table.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query,
		string(StatusFailed), message, string(StatusProcessing), cutoff,
		string(StatusPending), string(StatusUploading),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to sweep stale imports: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan import id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// # Row Mapping

func scanRecord(row pgx.Row) (*Record, error) {
	var record Record
	var status string
	var storageKey, errorMessage *string
	var snapshot, settings []byte

	err := row.Scan(
		&record.ID, &record.NovelID, &record.UploadedBy, &record.Filename, &record.OriginalSize, &record.MimeType,
		&storageKey, &status, &snapshot, &settings, &errorMessage, &record.ChaptersCreated,
		&record.ImagesExtracted, &record.ProcessingStarted, &record.ProcessingCompleted,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Status = Status(status)
	if storageKey != nil {
		record.StorageKey = *storageKey
	}
	if errorMessage != nil {
		record.ErrorMessage = *errorMessage
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &record.Settings); err != nil {
			return nil, fmt.Errorf("postgres: decode import settings: %w", err)
		}
	}
	if len(snapshot) > 0 {
		record.ExtractedContent = &Snapshot{}
		if err := json.Unmarshal(snapshot, record.ExtractedContent); err != nil {
			return nil, fmt.Errorf("postgres: decode import snapshot: %w", err)
		}
	}
	return &record, nil
}

func encodeSnapshot(snapshot *Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, nil
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode import snapshot: %w", err)
	}
	return data, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
