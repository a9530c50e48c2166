package schema

// CoreImportRecordTable represents the 'core.importrecord' table
type CoreImportRecordTable struct {
	Table               string
	ID                  string
	NovelID             string
	UploadedBy          string
	Filename            string
	OriginalSize        string
	MimeType            string
	StorageKey          string
	Status              string
	ExtractedContent    string
	ImportSettings      string
	ErrorMessage        string
	ChaptersCreated     string
	ImagesExtracted     string
	ProcessingStarted   string
	ProcessingCompleted string
	CreatedAt           string
	UpdatedAt           string
}

// CoreImportRecord is the schema definition for core.importrecord
var CoreImportRecord = CoreImportRecordTable{
	Table:               "core.importrecord",
	ID:                  "id",
	NovelID:             "novelid",
	UploadedBy:          "uploadedby",
	Filename:            "filename",
	OriginalSize:        "originalsize",
	MimeType:            "mimetype",
	StorageKey:          "storagekey",
	Status:              "status",
	ExtractedContent:    "extractedcontent",
	ImportSettings:      "importsettings",
	ErrorMessage:        "errormessage",
	ChaptersCreated:     "chapterscreated",
	ImagesExtracted:     "imagesextracted",
	ProcessingStarted:   "processingstarted",
	ProcessingCompleted: "processingcompleted",
	CreatedAt:           "createdat",
	UpdatedAt:           "updatedat",
}

func (t CoreImportRecordTable) Columns() []string {
	return []string{
		t.ID, t.NovelID, t.UploadedBy, t.Filename, t.OriginalSize, t.MimeType, t.StorageKey,
		t.Status, t.ExtractedContent, t.ImportSettings, t.ErrorMessage, t.ChaptersCreated,
		t.ImagesExtracted, t.ProcessingStarted, t.ProcessingCompleted, t.CreatedAt, t.UpdatedAt,
	}
}
