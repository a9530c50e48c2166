// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package importer

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira-import/internal/platform/apperr"
	"github.com/taibuivan/yomira-import/internal/platform/constants"
	"github.com/taibuivan/yomira-import/internal/platform/middleware"
	requestutil "github.com/taibuivan/yomira-import/internal/platform/request"
	"github.com/taibuivan/yomira-import/internal/platform/respond"
	"github.com/taibuivan/yomira-import/internal/platform/sec"
	"github.com/taibuivan/yomira-import/internal/platform/validate"
)

// multipartMemory is how much of a form is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

// # Handler Implementation

// Handler implements the HTTP layer for chapter imports.
type Handler struct {
	service *Service
}

// NewHandler constructs a new import [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the import endpoints. Every route requires an author.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireRole(sec.RoleAuthor))

	// ## Single Document
	router.Post("/upload", handler.upload)
	router.Post("/preview", handler.previewDocument)
	router.Get("/status/{importId}", handler.status)

	// ## Spreadsheet Batch
	router.Get("/template", handler.template)
	router.Post("/bulk/preview", handler.previewBulk)
	router.Post("/bulk/process", handler.processBulk)

	return router
}

// # Single Document Endpoints

/*
POST /api/v1/import/upload.

Description: Stores a .docx manuscript and schedules its conversion.

Request (multipart/form-data):
  - file: .docx (max 25MB)
  - novelId: string (UUID)
  - settings: JSON (startingChapterNumber, importAsPublished, importAsPremium, splitByHeading)

Response:
  - 202: {importId}
  - 400: ValidationError
  - 404: Novel not found
  - 413: File too large
*/
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input, err := readDocumentForm(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.UploadedBy = userID

	importID, err := handler.service.Upload(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]string{"importId": importID})
}

/*
POST /api/v1/import/preview.

Description: Converts a .docx manuscript and returns the draft without saving it.

Request (multipart/form-data): same fields as upload.

Response:
  - 200: Preview
  - 422: ConversionError
*/
func (handler *Handler) previewDocument(writer http.ResponseWriter, request *http.Request) {
	input, err := readDocumentForm(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := handler.service.PreviewDocument(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, preview)
}

/*
GET /api/v1/import/status/{importId}.

Description: Polling endpoint. Non-terminal responses carry Retry-After.

Response:
  - 200: StatusView
  - 404: Import record not found
*/
func (handler *Handler) status(writer http.ResponseWriter, request *http.Request) {
	view, err := handler.service.Status(request.Context(), requestutil.ID(request, "importId"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Cache-Control", "no-store")
	if !view.Status.IsTerminal() {
		writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(int(constants.StatusPollInterval.Seconds())))
	}
	respond.OK(writer, view)
}

// # Spreadsheet Endpoints

/*
GET /api/v1/import/template.

Response:
  - 200: .xlsx download
*/
func (handler *Handler) template(writer http.ResponseWriter, request *http.Request) {
	data, err := handler.service.Template()
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}
	respond.Attachment(writer, SpreadsheetMimeType, TemplateFilename, data)
}

/*
POST /api/v1/import/bulk/preview.

Request (multipart/form-data):
  - file: .xlsx (max 5MB, 50 rows)
  - novelId: string (UUID)

Response:
  - 200: {importRecordId, chapters, conflicts}
  - 400: ValidationError listing every bad row
*/
func (handler *Handler) previewBulk(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	filename, data, err := readUpload(writer, request, constants.MaxSpreadsheetBytes)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	preview, err := handler.service.PreviewBulk(request.Context(), SpreadsheetInput{
		NovelID:    strings.TrimSpace(request.FormValue(FieldNovelID)),
		UploadedBy: userID,
		Filename:   filename,
		Data:       data,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, preview)
}

// processBulkRequest is the confirmed subset of a bulk preview.
type processBulkRequest struct {
	NovelID        string         `json:"novelId"`
	ImportRecordID string         `json:"importRecordId"`
	Chapters       []ChapterDraft `json:"chapters"`
}

/*
POST /api/v1/import/bulk/process.

Request (JSON): {novelId, importRecordId, chapters}

Response:
  - 200: {created, errors}. Partial failures are listed, not raised.
  - 409: The preview was already processed
*/
func (handler *Handler) processBulk(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxDocumentBytes)

	var body processBulkRequest
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.service.ProcessBulk(request.Context(), CommitInput{
		NovelID:        body.NovelID,
		ImportRecordID: body.ImportRecordID,
		Chapters:       body.Chapters,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// # Form Helpers

func readDocumentForm(writer http.ResponseWriter, request *http.Request) (DocumentInput, error) {
	filename, data, err := readUpload(writer, request, constants.MaxDocumentBytes)
	if err != nil {
		return DocumentInput{}, err
	}

	var settings Settings
	if raw := strings.TrimSpace(request.FormValue(FieldSettings)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return DocumentInput{}, validate.RequiredError(FieldSettings, "Settings must be valid JSON")
		}
	}

	return DocumentInput{
		NovelID:  strings.TrimSpace(request.FormValue(FieldNovelID)),
		Filename: filename,
		Data:     data,
		Settings: settings,
	}, nil
}

// readUpload parses a multipart form and reads its file part, refusing oversize bodies early.
func readUpload(writer http.ResponseWriter, request *http.Request, maxBytes int64) (string, []byte, error) {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes+constants.MultipartOverhead)

	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", nil, tooLarge(maxBytes)
		}
		return "", nil, apperr.ValidationError("Request must be multipart/form-data")
	}

	file, header, err := request.FormFile(FieldFile)
	if err != nil {
		return "", nil, validate.RequiredError(FieldFile, "File is required")
	}
	defer file.Close()

	if header.Size > maxBytes {
		return "", nil, tooLarge(maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	if int64(len(data)) > maxBytes {
		return "", nil, tooLarge(maxBytes)
	}
	return header.Filename, data, nil
}
