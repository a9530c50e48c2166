package schema

// CoreChapterTable represents the 'core.chapter' table
type CoreChapterTable struct {
	Table             string
	ID                string
	NovelID           string
	ChapterNumber     string
	Title             string
	Slug              string
	Content           string
	WordCount         string
	EstimatedReadTime string
	Status            string
	IsPublished       string
	IsPremium         string
	DisplayOrder      string
	PublishedAt       string
	CreatedAt         string
	UpdatedAt         string
	DeletedAt         string
}

// CoreChapter is the schema definition for core.chapter
var CoreChapter = CoreChapterTable{
	Table:             "core.chapter",
	ID:                "id",
	NovelID:           "novelid",
	ChapterNumber:     "chapternumber",
	Title:             "title",
	Slug:              "slug",
	Content:           "content",
	WordCount:         "wordcount",
	EstimatedReadTime: "estimatedreadtime",
	Status:            "status",
	IsPublished:       "ispublished",
	IsPremium:         "ispremium",
	DisplayOrder:      "displayorder",
	PublishedAt:       "publishedat",
	CreatedAt:         "createdat",
	UpdatedAt:         "updatedat",
	DeletedAt:         "deletedat",
}

func (t CoreChapterTable) Columns() []string {
	return []string{
		t.ID, t.NovelID, t.ChapterNumber, t.Title, t.Slug, t.Content, t.WordCount,
		t.EstimatedReadTime, t.Status, t.IsPublished, t.IsPremium, t.DisplayOrder,
		t.PublishedAt, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
