// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/taibuivan/yomira-import/internal/core/chapter"
	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/constants"
	"github.com/taibuivan/yomira-import/internal/platform/ctxutil"
	"github.com/taibuivan/yomira-import/internal/platform/storage"
	"github.com/taibuivan/yomira-import/internal/platform/validate"
	"github.com/taibuivan/yomira-import/pkg/pointer"
	"github.com/taibuivan/yomira-import/pkg/uuid"
)

const (
	// MessageInterrupted is recorded by the reconciliation sweep.
	MessageInterrupted = "processing interrupted"

	messageProcessingFailed = "import processing failed"
	messageNoChapters       = "no chapters were created"

	// finalizeTimeout bounds the status write after a job's own context expired.
	finalizeTimeout = 10 * time.Second
)

// # Service Layer

// Enqueuer hands a record over to the background workers.
type Enqueuer interface {
	Enqueue(context context.Context, recordID string) error
}

// Service owns the import record lifecycle and orchestrates both import paths.
type Service struct {
	records  RecordRepository
	chapters chapter.Repository
	objects  storage.ObjectStore
	queue    Enqueuer
	now      func() time.Time
}

// NewService constructs a new [Service]. queue may be nil for processes that only consume.
func NewService(records RecordRepository, chapters chapter.Repository, objects storage.ObjectStore, queue Enqueuer) *Service {
	return &Service{
		records:  records,
		chapters: chapters,
		objects:  objects,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// DocumentInput is an uploaded manuscript.
type DocumentInput struct {
	NovelID    string
	UploadedBy string
	Filename   string
	Data       []byte
	Settings   Settings
}

// SpreadsheetInput is an uploaded spreadsheet batch.
type SpreadsheetInput struct {
	NovelID    string
	UploadedBy string
	Filename   string
	Data       []byte
}

// CommitInput is the author-confirmed subset of a bulk preview.
type CommitInput struct {
	NovelID        string
	ImportRecordID string
	Chapters       []ChapterDraft
}

// # Single Document

/*
Upload accepts a manuscript and schedules its conversion.

Description: All validation happens before the first write. The record then
moves pending → uploading while the binary is stored, and the id is returned
as soon as a worker job is queued. Storage or queue failures close the record
as failed.

Parameters:
  - context: context.Context
  - input: DocumentInput

Returns:
  - string: Import record id to poll
  - error: ValidationError, TooLarge, NotFound (novel), Internal, ServiceUnavailable
*/
func (service *Service) Upload(context context.Context, input DocumentInput) (string, error) {
	if err := service.checkDocument(context, input); err != nil {
		return "", err
	}
	if strings.TrimSpace(input.UploadedBy) == "" {
		return "", apperr.Unauthorized("Authentication required")
	}

	logger := ctxutil.GetLogger(context)
	id := uuid.New()
	record := &Record{
		ID:           id,
		NovelID:      input.NovelID,
		UploadedBy:   input.UploadedBy,
		Filename:     filepath.Base(input.Filename),
		OriginalSize: int64(len(input.Data)),
		MimeType:     DocumentMimeType,
		StorageKey:   SourceKey(id),
		Status:       StatusPending,
		Settings:     input.Settings,
	}
	if err := service.records.Create(context, record); err != nil {
		return "", err
	}

	if _, err := service.records.Transition(context, id, Transition{From: []Status{StatusPending}, To: StatusUploading}); err != nil {
		return "", err
	}

	err := service.objects.Put(context, record.StorageKey, bytes.NewReader(input.Data), record.OriginalSize, DocumentMimeType)
	if err != nil {
		service.fail(context, id, []Status{StatusUploading}, "upload could not be stored")
		return "", apperr.Internal(fmt.Errorf("importer: store upload: %w", err))
	}

	if service.queue == nil {
		service.discard(context, id, record.StorageKey, "upload could not be scheduled")
		return "", apperr.ServiceUnavailable("Import processing is unavailable")
	}
	if err := service.queue.Enqueue(context, id); err != nil {
		service.discard(context, id, record.StorageKey, "upload could not be scheduled")
		return "", apperr.Internal(fmt.Errorf("importer: enqueue: %w", err))
	}

	logger.Info("import_record_created",
		"import_id", id,
		"novel_id", input.NovelID,
		"filename", record.Filename,
		"size", record.OriginalSize,
	)
	return id, nil
}

/*
Status returns the polling payload of an import record. It never writes.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - StatusView
  - error: apperr.NotFound for unknown ids
*/
func (service *Service) Status(context context.Context, id string) (StatusView, error) {
	if !uuid.IsValid(id) {
		return StatusView{}, apperr.NotFound(resourceImportRecord)
	}
	record, err := service.records.FindByID(context, id)
	if err != nil {
		return StatusView{}, err
	}
	return record.View(), nil
}

/*
PreviewDocument converts a manuscript without persisting anything.

Description: Colliding numbers are renumbered silently, so the returned
conflict list is always empty. Images are inlined as data URIs.

Parameters:
  - context: context.Context
  - input: DocumentInput (UploadedBy is ignored)

Returns:
  - Preview: Drafts without an import record id
  - error: ValidationError, TooLarge, NotFound, ConversionError
*/
func (service *Service) PreviewDocument(context context.Context, input DocumentInput) (Preview, error) {
	if err := service.checkDocument(context, input); err != nil {
		return Preview{}, err
	}

	conversion, err := ConvertDocument(context, input.Filename, input.Data, convertOptions(input.Settings, nil))
	if err != nil {
		return Preview{}, err
	}

	drafts, err := ResolveConflicts(context, service.chapters, input.NovelID, applySettings(conversion.Drafts, input.Settings))
	if err != nil {
		return Preview{}, apperr.Internal(err)
	}
	return Preview{Chapters: drafts, Conflicts: []float64{}}, nil
}

/*
ProcessJob runs the background conversion of one uploaded manuscript.

Description: Only a record still in uploading is claimed; anything else means
the job was already handled and it returns without work. Every failure after
the claim is written to the record, never retried.

Parameters:
  - context: context.Context (Job deadline)
  - id: string (Import record id)

Returns:
  - error: Only when the claim itself could not be attempted
*/
func (service *Service) ProcessJob(context context.Context, id string) error {
	logger := ctxutil.GetLogger(context).With("import_id", id)

	started := service.now()
	record, err := service.records.Transition(context, id, Transition{
		From:              []Status{StatusUploading},
		To:                StatusProcessing,
		ProcessingStarted: &started,
	})
	if err != nil {
		if appErr := apperr.As(err); appErr != nil && appErr.Code != "INTERNAL_ERROR" {
			logger.Info("import_job_skipped", "reason", appErr.Message)
			return nil
		}
		return err
	}

	created, images, err := service.convertAndCommit(context, record)
	if err != nil {
		logger.Error("import_processing_failed", "error", err)
		service.fail(context, id, []Status{StatusProcessing}, failureMessage(err))
		return nil
	}

	completed := service.now()
	finalCtx, cancel := detached(context)
	defer cancel()

	_, err = service.records.Transition(finalCtx, id, Transition{
		From:                []Status{StatusProcessing},
		To:                  StatusCompleted,
		ChaptersCreated:     pointer.To(created),
		ImagesExtracted:     pointer.To(images),
		ProcessingCompleted: &completed,
	})
	if err != nil {
		return fmt.Errorf("importer: complete %s: %w", id, err)
	}

	logger.Info("import_processing_completed",
		"chapters_created", created,
		"images_extracted", images,
		"duration_ms", completed.Sub(started).Milliseconds(),
	)
	return nil
}

func (service *Service) convertAndCommit(context context.Context, record *Record) (int, int, error) {
	data, err := service.objects.Get(context, record.StorageKey, constants.MaxDocumentBytes)
	if err != nil {
		return 0, 0, fmt.Errorf("importer: load upload: %w", err)
	}

	sink := recordImages{objects: service.objects, importID: record.ID}
	conversion, err := ConvertDocument(context, record.Filename, data, convertOptions(record.Settings, sink))
	if err != nil {
		return 0, 0, err
	}

	drafts, err := ResolveConflicts(context, service.chapters, record.NovelID, applySettings(conversion.Drafts, record.Settings))
	if err != nil {
		return 0, 0, err
	}

	result, err := CommitChapters(context, service.chapters, record.NovelID, drafts)
	if err != nil {
		return 0, 0, err
	}
	if result.Created == 0 {
		return 0, 0, apperr.ValidationError(joinErrors(result.Errors))
	}
	if len(result.Errors) > 0 {
		ctxutil.GetLogger(context).Warn("import_partially_committed",
			"import_id", record.ID,
			"created", result.Created,
			"errors", result.Errors,
		)
	}
	return result.Created, conversion.ImagesExtracted, nil
}

// # Spreadsheet Batch

/*
PreviewBulk parses a spreadsheet batch and reports conflicts.

Description: A batch with zero valid rows is recorded as a failed import and
answered with an empty preview rather than an error. Any other parse error is
returned before a record exists.

Parameters:
  - context: context.Context
  - input: SpreadsheetInput

Returns:
  - Preview: Record id, all drafts and the colliding numbers
  - error: ValidationError, TooLarge, NotFound
*/
func (service *Service) PreviewBulk(context context.Context, input SpreadsheetInput) (Preview, error) {
	if err := checkFile(input.Filename, len(input.Data), SpreadsheetExt, constants.MaxSpreadsheetBytes); err != nil {
		return Preview{}, err
	}
	if err := service.checkNovel(context, input.NovelID); err != nil {
		return Preview{}, err
	}

	record := &Record{
		ID:           uuid.New(),
		NovelID:      input.NovelID,
		UploadedBy:   input.UploadedBy,
		Filename:     filepath.Base(input.Filename),
		OriginalSize: int64(len(input.Data)),
		MimeType:     SpreadsheetMimeType,
	}
	logger := ctxutil.GetLogger(context).With("import_id", record.ID, "novel_id", input.NovelID)

	drafts, err := ParseSpreadsheet(input.Data)
	if errors.Is(err, ErrNoValidChapters) {
		record.Status = StatusFailed
		record.ErrorMessage = "no valid chapters found"
		if err := service.records.Create(context, record); err != nil {
			return Preview{}, err
		}
		logger.Info("import_bulk_preview_empty")
		return Preview{ImportRecordID: record.ID, Chapters: []ChapterDraft{}, Conflicts: []float64{}}, nil
	}
	if err != nil {
		return Preview{}, err
	}

	proposed := make([]float64, len(drafts))
	for i, d := range drafts {
		proposed[i] = d.ChapterNumber
	}
	conflicts, err := DetectConflicts(context, service.chapters, input.NovelID, proposed)
	if err != nil {
		return Preview{}, apperr.Internal(err)
	}

	record.Status = StatusPreviewing
	record.ExtractedContent = &Snapshot{Chapters: drafts, Conflicts: conflicts}
	if err := service.records.Create(context, record); err != nil {
		return Preview{}, err
	}

	logger.Info("import_bulk_previewed", "chapters", len(drafts), "conflicts", len(conflicts))
	return Preview{ImportRecordID: record.ID, Chapters: drafts, Conflicts: conflicts}, nil
}

/*
ProcessBulk commits the confirmed drafts of a previewed batch.

Description: The record must be previewing; claiming it moves it to processing,
so a second submit of the same preview is rejected. The record ends completed
when at least one chapter was created, failed otherwise.

Parameters:
  - context: context.Context
  - input: CommitInput

Returns:
  - CommitResult: Partial failures are listed, not raised
  - error: ValidationError, NotFound, InvalidTransition
*/
func (service *Service) ProcessBulk(context context.Context, input CommitInput) (CommitResult, error) {
	validator := &validate.Validator{}
	validator.UUID(FieldNovelID, input.NovelID).UUID(FieldImportRecordID, input.ImportRecordID)
	validator.Custom(FieldChapters, len(input.Chapters) == 0, "At least one chapter is required")
	validator.Custom(FieldChapters, len(input.Chapters) > MaxChaptersPerBatch, fmt.Sprintf("maximum %d chapters per upload", MaxChaptersPerBatch))
	if err := validator.Err(); err != nil {
		return CommitResult{}, err
	}

	record, err := service.records.FindByID(context, input.ImportRecordID)
	if err != nil {
		return CommitResult{}, err
	}
	if record.NovelID != input.NovelID {
		return CommitResult{}, validate.RequiredError(FieldImportRecordID, "Import record belongs to another novel")
	}

	started := service.now()
	if _, err := service.records.Transition(context, record.ID, Transition{
		From:              []Status{StatusPreviewing},
		To:                StatusProcessing,
		ProcessingStarted: &started,
	}); err != nil {
		return CommitResult{}, err
	}

	result, err := CommitChapters(context, service.chapters, input.NovelID, input.Chapters)
	if err != nil {
		service.fail(context, record.ID, []Status{StatusProcessing}, failureMessage(err))
		return CommitResult{}, err
	}

	completed := service.now()
	change := Transition{
		From:                []Status{StatusProcessing},
		To:                  StatusCompleted,
		ChaptersCreated:     pointer.To(result.Created),
		ProcessingCompleted: &completed,
	}
	if result.Created == 0 {
		change.To = StatusFailed
		change.ErrorMessage = pointer.To(joinErrors(result.Errors))
	}
	finalCtx, cancel := detached(context)
	defer cancel()
	if _, err := service.records.Transition(finalCtx, record.ID, change); err != nil {
		return CommitResult{}, err
	}

	ctxutil.GetLogger(context).Info("import_bulk_committed",
		"import_id", record.ID,
		"novel_id", input.NovelID,
		"created", result.Created,
		"failed", len(result.Errors),
	)
	return result, nil
}

// Template returns the bulk import spreadsheet skeleton.
func (service *Service) Template() ([]byte, error) {
	return GenerateTemplate()
}

// # Reconciliation

/*
SweepStale fails records left in processing by a worker that never finished,
and uploads that stopped before their job was queued.

Description: A queued upload still waiting after olderThan is failed as well;
its job is then skipped by [Service.ProcessJob] as an invalid transition.

Parameters:
  - context: context.Context
  - olderThan: time.Duration (Minimum time in processing, or since creation)

Returns:
  - int: Number of records failed
  - error: Storage failures
*/
func (service *Service) SweepStale(context context.Context, olderThan time.Duration) (int, error) {
	ids, err := service.records.FailStale(context, service.now().Add(-olderThan), MessageInterrupted)
	if err != nil {
		return 0, err
	}

	logger := ctxutil.GetLogger(context)
	for _, id := range ids {
		logger.Warn("import_processing_interrupted", "import_id", id)
	}
	return len(ids), nil
}

// # Helpers

func (service *Service) checkDocument(context context.Context, input DocumentInput) error {
	if err := checkFile(input.Filename, len(input.Data), DocumentExt, constants.MaxDocumentBytes); err != nil {
		return err
	}
	if err := input.Settings.validate(); err != nil {
		return err
	}
	return service.checkNovel(context, input.NovelID)
}

func (service *Service) checkNovel(context context.Context, novelID string) error {
	if err := (&validate.Validator{}).UUID(FieldNovelID, novelID).Err(); err != nil {
		return err
	}
	exists, err := service.chapters.NovelExists(context, novelID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !exists {
		return apperr.NotFound("Novel")
	}
	return nil
}

// checkFile enforces name, extension and size before any parsing work.
func checkFile(filename string, size int, ext string, maxBytes int64) error {
	validator := (&validate.Validator{}).
		Required(FieldFile, filename).
		MaxLen(FieldFile, filepath.Base(filename), MaxFilenameLength)
	validator.Custom(FieldFile, !strings.EqualFold(filepath.Ext(filename), ext), fmt.Sprintf("Only %s files are accepted", ext))
	validator.Custom(FieldFile, size == 0, "File is empty")
	if err := validator.Err(); err != nil {
		return err
	}
	if int64(size) > maxBytes {
		return tooLarge(maxBytes)
	}
	return nil
}

func tooLarge(maxBytes int64) error {
	return apperr.TooLarge(fmt.Sprintf("File exceeds the %dMB limit", maxBytes>>20))
}

// fail closes a record. The write survives cancellation of the caller's context.
func (service *Service) fail(context context.Context, id string, from []Status, message string) {
	finalCtx, cancel := detached(context)
	defer cancel()

	completed := service.now()
	_, err := service.records.Transition(finalCtx, id, Transition{
		From:                from,
		To:                  StatusFailed,
		ErrorMessage:        &message,
		ProcessingCompleted: &completed,
	})
	if err != nil {
		ctxutil.GetLogger(context).Error("import_record_fail_write_failed", "import_id", id, "error", err)
	}
}

// discard fails a record whose stored upload will never be processed and removes the upload.
func (service *Service) discard(context context.Context, id, key, message string) {
	service.fail(context, id, []Status{StatusUploading}, message)

	finalCtx, cancel := detached(context)
	defer cancel()
	if err := service.objects.Delete(finalCtx, key); err != nil {
		ctxutil.GetLogger(context).Warn("import_upload_cleanup_failed", "import_id", id, "key", key, "error", err)
	}
}

// detached keeps the caller's values but not its deadline.
func detached(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), finalizeTimeout)
}

func convertOptions(settings Settings, sink ImageSink) ConvertOptions {
	return ConvertOptions{
		StartingChapterNumber: settings.StartingChapterNumber,
		SplitByHeading:        settings.SplitByHeading,
		Images:                sink,
	}
}

// applySettings stamps the publish flags chosen at upload time onto every draft.
func applySettings(drafts []ChapterDraft, settings Settings) []ChapterDraft {
	out := make([]ChapterDraft, len(drafts))
	for i, d := range drafts {
		d.IsPublished = settings.ImportAsPublished
		d.IsPremium = settings.ImportAsPremium
		out[i] = d
	}
	return out
}

// failureMessage keeps internal details out of the author-facing record.
func failureMessage(err error) string {
	if appErr := apperr.As(err); appErr != nil && appErr.Code != "INTERNAL_ERROR" {
		return appErr.Message
	}
	return messageProcessingFailed
}

func joinErrors(errs []string) string {
	if len(errs) == 0 {
		return messageNoChapters
	}
	return strings.Join(errs, "\n")
}

// # Object Keys

// SourceKey is where an upload's original bytes are stored.
func SourceKey(importID string) string {
	return fmt.Sprintf("imports/%s/source%s", importID, DocumentExt)
}

// ImageKey is where an extracted image is stored.
func ImageKey(importID, name string) string {
	return fmt.Sprintf("imports/%s/images/%s", importID, name)
}

// recordImages stores extracted images under the import's prefix.
type recordImages struct {
	objects  storage.ObjectStore
	importID string
}

func (images recordImages) StoreImage(context context.Context, name, contentType string, data []byte) (string, error) {
	key := ImageKey(images.importID, name)
	if err := images.objects.Put(context, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return images.objects.PublicURL(key), nil
}
