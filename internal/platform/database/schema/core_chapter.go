package schema

// CoreChapterTable represents the 'core.chapter' table
type CoreChapterTable struct {
	Table         string
	ID            string
	WorkID        string
	UploaderID    string
	ChapterNumber string
	Title         string
	ViewCount     string
	CreatedAt     string
	UpdatedAt     string
}

// CoreChapter is the schema definition for core.chapter
var CoreChapter = CoreChapterTable{
	Table:         "core.chapter",
	ID:            "id",
	WorkID:        "workid",
	UploaderID:    "uploaderid",
	ChapterNumber: "chapternumber",
	Title:         "title",
	ViewCount:     "viewcount",
	CreatedAt:     "createdat",
	UpdatedAt:     "updatedat",
}

func (t CoreChapterTable) Columns() []string {
	return []string{
		t.ID, t.WorkID, t.UploaderID, t.ChapterNumber, t.Title,
		t.ViewCount, t.CreatedAt, t.UpdatedAt,
	}
}
