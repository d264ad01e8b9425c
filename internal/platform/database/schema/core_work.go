package schema

// CoreWorkTable represents the 'core.work' table
type CoreWorkTable struct {
	Table     string
	ID        string
	Title     string
	CoverURL  string
	CreatedAt string
}

// CoreWork is the schema definition for core.work
var CoreWork = CoreWorkTable{
	Table:     "core.work",
	ID:        "id",
	Title:     "title",
	CoverURL:  "coverurl",
	CreatedAt: "createdat",
}
