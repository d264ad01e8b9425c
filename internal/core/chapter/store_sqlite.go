// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/dberr"
	"github.com/taibuivan/chapterhub/internal/platform/sqlite"
)

// # SQLite Repository

// sqliteRepository implements [Repository] on the embedded store.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository constructs a chapter and page store on an open SQLite handle.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

var (
	sqliteChapter = sqlite.Table(chapterTable.Table)
	sqlitePage    = sqlite.Table(pageTable.Table)
	sqliteWork    = sqlite.Table(workTable.Table)
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChapter(row rowScanner, extra ...any) (*Chapter, error) {
	var chapter Chapter
	var createdAt, updatedAt string

	dest := append([]any{
		&chapter.ID, &chapter.WorkID, &chapter.UploaderID, &chapter.Number,
		&chapter.Title, &chapter.ViewCount, &createdAt, &updatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if chapter.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if chapter.UpdatedAt, err = sqlite.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	return &chapter, nil
}

func scanPage(row rowScanner) (*Page, error) {
	var page Page
	var createdAt, updatedAt string

	if err := row.Scan(&page.ID, &page.ChapterID, &page.PageNumber, &page.ImageURL, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if page.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if page.UpdatedAt, err = sqlite.ParseTime(updatedAt); err != nil {
		return nil, err
	}

	return &page, nil
}

var (
	sqliteChapterColumns = strings.Join(chapterTable.Columns(), ", ")
	sqlitePageColumns    = strings.Join(pageTable.Columns(), ", ")
)

// # Chapter Queries

// ListByWork retrieves one page of a work's chapters.
func (repository *sqliteRepository) ListByWork(context context.Context, workID string, filter ChapterFilter, limit, offset int) ([]*Chapter, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, sqliteChapter, chapterTable.WorkID)
	if err := repository.db.QueryRowContext(context, countQuery, workID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to count chapters: %w", err)
	}

	direction := "DESC"
	if !filter.Descending() {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY %s %s LIMIT ? OFFSET ?`,
		sqliteChapterColumns, sqliteChapter, chapterTable.WorkID, chapterTable.ChapterNumber, direction)

	rows, err := repository.db.QueryContext(context, query, workID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*Chapter{}
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlite: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to iterate chapters: %w", err)
	}

	return chapters, total, nil
}

// FindByID returns a chapter joined with its work summary.
func (repository *sqliteRepository) FindByID(context context.Context, id string) (*Chapter, error) {
	query := fmt.Sprintf(`
		SELECT c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, w.%s, w.%s, w.%s
		FROM %s c
		JOIN %s w ON w.%s = c.%s
		WHERE c.%s = ?
	`,
		chapterTable.ID, chapterTable.WorkID, chapterTable.UploaderID, chapterTable.ChapterNumber,
		chapterTable.Title, chapterTable.ViewCount, chapterTable.CreatedAt, chapterTable.UpdatedAt,
		workTable.ID, workTable.Title, workTable.CoverURL,
		sqliteChapter,
		sqliteWork, workTable.ID, chapterTable.WorkID,
		chapterTable.ID,
	)

	var work Work
	chapter, err := scanChapter(repository.db.QueryRowContext(context, query, id), &work.ID, &work.Title, &work.CoverURL)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Chapter")
		}
		return nil, fmt.Errorf("sqlite: failed to find chapter: %w", err)
	}

	chapter.Work = &work
	return chapter, nil
}

// FindWork returns the summary of a work.
func (repository *sqliteRepository) FindWork(context context.Context, id string) (*Work, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = ?`,
		workTable.ID, workTable.Title, workTable.CoverURL, sqliteWork, workTable.ID)

	var work Work
	if err := repository.db.QueryRowContext(context, query, id).Scan(&work.ID, &work.Title, &work.CoverURL); err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Work")
		}
		return nil, fmt.Errorf("sqlite: failed to find work: %w", err)
	}

	return &work, nil
}

// # Chapter Commands

// Create inserts a chapter and fills in its timestamps.
func (repository *sqliteRepository) Create(context context.Context, chapter *Chapter) error {
	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, 0, ?, ?)`, sqliteChapter, sqliteChapterColumns)

	_, err := repository.db.ExecContext(context, query,
		chapter.ID, chapter.WorkID, chapter.UploaderID, chapter.Number, chapter.Title,
		sqlite.FormatTime(now), sqlite.FormatTime(now),
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Chapter")
		}
		return fmt.Errorf("sqlite: failed to create chapter: %w", err)
	}

	chapter.ViewCount = 0
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
	return nil
}

// Update overwrites a chapter's number and title.
func (repository *sqliteRepository) Update(context context.Context, chapter *Chapter) error {
	now := time.Now().UTC()

	query := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ?, %s = ? WHERE %s = ?`,
		sqliteChapter, chapterTable.ChapterNumber, chapterTable.Title, chapterTable.UpdatedAt, chapterTable.ID)

	result, err := repository.db.ExecContext(context, query, chapter.Number, chapter.Title, sqlite.FormatTime(now), chapter.ID)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Chapter")
		}
		return fmt.Errorf("sqlite: failed to update chapter: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFound("Chapter")
	}

	chapter.UpdatedAt = now
	return nil
}

// Delete hard-deletes a chapter; pages cascade.
func (repository *sqliteRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, sqliteChapter, chapterTable.ID)

	result, err := repository.db.ExecContext(context, query, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete chapter: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFound("Chapter")
	}

	return nil
}

// IncrementViewCount atomically adds delta to a chapter's view counter.
func (repository *sqliteRepository) IncrementViewCount(context context.Context, id string, delta int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + ? WHERE %s = ?`,
		sqliteChapter, chapterTable.ViewCount, chapterTable.ViewCount, chapterTable.ID)

	if _, err := repository.db.ExecContext(context, query, delta, id); err != nil {
		return fmt.Errorf("sqlite: failed to increment chapter view count: %w", err)
	}

	return nil
}

// # Page Queries

// ListPages retrieves a chapter's pages sorted by sequence.
func (repository *sqliteRepository) ListPages(context context.Context, chapterID string) ([]*Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC`,
		sqlitePageColumns, sqlitePage, pageTable.ChapterID, pageTable.PageNumber)

	rows, err := repository.db.QueryContext(context, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := []*Page{}
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate pages: %w", err)
	}

	return pages, nil
}

// FindPage returns a single page.
func (repository *sqliteRepository) FindPage(context context.Context, id string) (*Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, sqlitePageColumns, sqlitePage, pageTable.ID)

	page, err := scanPage(repository.db.QueryRowContext(context, query, id))
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Page")
		}
		return nil, fmt.Errorf("sqlite: failed to find page: %w", err)
	}

	return page, nil
}

// MaxPageNumber returns the highest page number in a chapter, or 0 if it has none.
func (repository *sqliteRepository) MaxPageNumber(context context.Context, chapterID string) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0) FROM %s WHERE %s = ?`,
		pageTable.PageNumber, sqlitePage, pageTable.ChapterID)

	var highest int
	if err := repository.db.QueryRowContext(context, query, chapterID).Scan(&highest); err != nil {
		return 0, fmt.Errorf("sqlite: failed to read max page number: %w", err)
	}

	return highest, nil
}

// # Page Commands

// CreatePage inserts one page row and fills in its timestamps.
func (repository *sqliteRepository) CreatePage(context context.Context, page *Page) error {
	now := time.Now().UTC()

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?)`, sqlitePage, sqlitePageColumns)

	_, err := repository.db.ExecContext(context, query,
		page.ID, page.ChapterID, page.PageNumber, page.ImageURL, sqlite.FormatTime(now), sqlite.FormatTime(now))
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, fmt.Sprintf("Page %d", page.PageNumber))
		}
		return fmt.Errorf("sqlite: failed to create page: %w", err)
	}

	page.CreatedAt = now
	page.UpdatedAt = now
	return nil
}

// DeletePage removes one page row.
func (repository *sqliteRepository) DeletePage(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, sqlitePage, pageTable.ID)

	result, err := repository.db.ExecContext(context, query, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete page: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return apperr.NotFound("Page")
	}

	return nil
}
