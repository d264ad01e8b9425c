// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/dberr"
	"github.com/taibuivan/chapterhub/internal/platform/database/schema"
)

// # PostgreSQL Repository

// postgresRepository implements [Repository] using pgx.
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed chapter and page store.
func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

var (
	chapterTable = schema.CoreChapter
	pageTable    = schema.CorePage
	workTable    = schema.CoreWork
)

// # Chapter Queries

/*
ListByWork retrieves one page of a work's chapters.

Description: The total is computed with a window function so that a single
round-trip returns both the slice and the count.
*/
func (repository *postgresRepository) ListByWork(context context.Context, workID string, filter ChapterFilter, limit, offset int) ([]*Chapter, int, error) {
	direction := "DESC"
	if !filter.Descending() {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s = $1
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`,
		chapterTable.ID, chapterTable.WorkID, chapterTable.UploaderID, chapterTable.ChapterNumber,
		chapterTable.Title, chapterTable.ViewCount, chapterTable.CreatedAt, chapterTable.UpdatedAt,
		chapterTable.Table,
		chapterTable.WorkID,
		chapterTable.ChapterNumber, direction,
	)

	rows, err := repository.pool.Query(context, query, workID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*Chapter{}
	var total int

	for rows.Next() {
		var chapter Chapter
		if err := rows.Scan(
			&chapter.ID, &chapter.WorkID, &chapter.UploaderID, &chapter.Number,
			&chapter.Title, &chapter.ViewCount, &chapter.CreatedAt, &chapter.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan chapter: %w", err)
		}
		chapters = append(chapters, &chapter)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to iterate chapters: %w", err)
	}

	return chapters, total, nil
}

// FindByID returns a chapter joined with its work summary.
func (repository *postgresRepository) FindByID(context context.Context, id string) (*Chapter, error) {
	query := fmt.Sprintf(`
		SELECT c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, c.%s, c.%s,
		       w.%s, w.%s, w.%s
		FROM %s c
		JOIN %s w ON w.%s = c.%s
		WHERE c.%s = $1
	`,
		chapterTable.ID, chapterTable.WorkID, chapterTable.UploaderID, chapterTable.ChapterNumber,
		chapterTable.Title, chapterTable.ViewCount, chapterTable.CreatedAt, chapterTable.UpdatedAt,
		workTable.ID, workTable.Title, workTable.CoverURL,
		chapterTable.Table,
		workTable.Table, workTable.ID, chapterTable.WorkID,
		chapterTable.ID,
	)

	var chapter Chapter
	var work Work

	err := repository.pool.QueryRow(context, query, id).Scan(
		&chapter.ID, &chapter.WorkID, &chapter.UploaderID, &chapter.Number,
		&chapter.Title, &chapter.ViewCount, &chapter.CreatedAt, &chapter.UpdatedAt,
		&work.ID, &work.Title, &work.CoverURL,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Chapter")
		}
		return nil, fmt.Errorf("postgres: failed to find chapter: %w", err)
	}

	chapter.Work = &work
	return &chapter, nil
}

// FindWork returns the summary of a work.
func (repository *postgresRepository) FindWork(context context.Context, id string) (*Work, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = $1`,
		workTable.ID, workTable.Title, workTable.CoverURL, workTable.Table, workTable.ID)

	var work Work
	err := repository.pool.QueryRow(context, query, id).Scan(&work.ID, &work.Title, &work.CoverURL)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Work")
		}
		return nil, fmt.Errorf("postgres: failed to find work: %w", err)
	}

	return &work, nil
}

// # Chapter Commands

// Create inserts a chapter and fills in its timestamps.
func (repository *postgresRepository) Create(context context.Context, chapter *Chapter) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s, %s, %s
	`,
		chapterTable.Table,
		chapterTable.ID, chapterTable.WorkID, chapterTable.UploaderID, chapterTable.ChapterNumber, chapterTable.Title,
		chapterTable.ViewCount, chapterTable.CreatedAt, chapterTable.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query,
		chapter.ID, chapter.WorkID, chapter.UploaderID, chapter.Number, chapter.Title,
	).Scan(&chapter.ViewCount, &chapter.CreatedAt, &chapter.UpdatedAt)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Chapter")
		}
		return fmt.Errorf("postgres: failed to create chapter: %w", err)
	}

	return nil
}

// Update overwrites a chapter's number and title.
func (repository *postgresRepository) Update(context context.Context, chapter *Chapter) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = NOW()
		WHERE %s = $3
		RETURNING %s
	`,
		chapterTable.Table,
		chapterTable.ChapterNumber, chapterTable.Title, chapterTable.UpdatedAt,
		chapterTable.ID,
		chapterTable.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query, chapter.Number, chapter.Title, chapter.ID).Scan(&chapter.UpdatedAt)
	if err != nil {
		if dberr.IsNoRows(err) || dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, "Chapter")
		}
		return fmt.Errorf("postgres: failed to update chapter: %w", err)
	}

	return nil
}

// Delete hard-deletes a chapter; core.page rows cascade.
func (repository *postgresRepository) Delete(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, chapterTable.Table, chapterTable.ID)

	result, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete chapter: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Chapter")
	}

	return nil
}

// IncrementViewCount atomically adds delta to a chapter's view counter.
func (repository *postgresRepository) IncrementViewCount(context context.Context, id string, delta int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $1 WHERE %s = $2`,
		chapterTable.Table, chapterTable.ViewCount, chapterTable.ViewCount, chapterTable.ID)

	if _, err := repository.pool.Exec(context, query, delta, id); err != nil {
		return fmt.Errorf("postgres: failed to increment chapter view count: %w", err)
	}

	return nil
}

// # Page Queries

// ListPages retrieves a chapter's pages sorted by sequence.
func (repository *postgresRepository) ListPages(context context.Context, chapterID string) ([]*Page, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		pageTable.ID, pageTable.ChapterID, pageTable.PageNumber, pageTable.ImageURL, pageTable.CreatedAt, pageTable.UpdatedAt,
		pageTable.Table,
		pageTable.ChapterID,
		pageTable.PageNumber,
	)

	rows, err := repository.pool.Query(context, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := []*Page{}
	for rows.Next() {
		var page Page
		if err := rows.Scan(&page.ID, &page.ChapterID, &page.PageNumber, &page.ImageURL, &page.CreatedAt, &page.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan page: %w", err)
		}
		pages = append(pages, &page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate pages: %w", err)
	}

	return pages, nil
}

// FindPage returns a single page.
func (repository *postgresRepository) FindPage(context context.Context, id string) (*Page, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s, %s, %s FROM %s WHERE %s = $1`,
		pageTable.ID, pageTable.ChapterID, pageTable.PageNumber, pageTable.ImageURL, pageTable.CreatedAt, pageTable.UpdatedAt,
		pageTable.Table, pageTable.ID)

	var page Page
	err := repository.pool.QueryRow(context, query, id).Scan(
		&page.ID, &page.ChapterID, &page.PageNumber, &page.ImageURL, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, dberr.Wrap(err, "Page")
		}
		return nil, fmt.Errorf("postgres: failed to find page: %w", err)
	}

	return &page, nil
}

// MaxPageNumber returns the highest page number in a chapter, or 0 if it has none.
func (repository *postgresRepository) MaxPageNumber(context context.Context, chapterID string) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(%s), 0) FROM %s WHERE %s = $1`,
		pageTable.PageNumber, pageTable.Table, pageTable.ChapterID)

	var highest int
	if err := repository.pool.QueryRow(context, query, chapterID).Scan(&highest); err != nil {
		return 0, fmt.Errorf("postgres: failed to read max page number: %w", err)
	}

	return highest, nil
}

// # Page Commands

// CreatePage inserts one page row and fills in its timestamps.
func (repository *postgresRepository) CreatePage(context context.Context, page *Page) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s, %s
	`,
		pageTable.Table,
		pageTable.ID, pageTable.ChapterID, pageTable.PageNumber, pageTable.ImageURL,
		pageTable.CreatedAt, pageTable.UpdatedAt,
	)

	err := repository.pool.QueryRow(context, query, page.ID, page.ChapterID, page.PageNumber, page.ImageURL).
		Scan(&page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return dberr.Wrap(err, fmt.Sprintf("Page %d", page.PageNumber))
		}
		return fmt.Errorf("postgres: failed to create page: %w", err)
	}

	return nil
}

// DeletePage removes one page row.
func (repository *postgresRepository) DeletePage(context context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, pageTable.Table, pageTable.ID)

	result, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete page: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("Page")
	}

	return nil
}
