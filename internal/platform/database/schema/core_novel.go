package schema

// CoreNovelTable represents the 'core.novel' table
type CoreNovelTable struct {
	Table     string
	ID        string
	AuthorID  string
	Title     string
	Slug      string
	CreatedAt string
	UpdatedAt string
	DeletedAt string
}

// CoreNovel is the schema definition for core.novel
var CoreNovel = CoreNovelTable{
	Table:     "core.novel",
	ID:        "id",
	AuthorID:  "authorid",
	Title:     "title",
	Slug:      "slug",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
	DeletedAt: "deletedat",
}

func (t CoreNovelTable) Columns() []string {
	return []string{t.ID, t.AuthorID, t.Title, t.Slug, t.CreatedAt, t.UpdatedAt, t.DeletedAt}
}
