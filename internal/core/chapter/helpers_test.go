// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/assetfs"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/internal/platform/sqlite"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

var (
	uploader = &sec.AuthClaims{UserID: "uploader-1", Role: string(sec.RoleAuthor)}
	stranger = &sec.AuthClaims{UserID: "stranger-2", Role: string(sec.RoleAuthor)}
	admin    = &sec.AuthClaims{UserID: "admin-3", Role: string(sec.RoleAdmin)}
)

// fixture bundles a real SQLite store and asset directory.
type fixture struct {
	db         *sql.DB
	repository chapter.Repository
	assets     *assetfs.Store
	service    *chapter.Service
	workID     string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithViews(t, nil)
}

func newFixtureWithViews(t *testing.T, views chapter.ViewCounter) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.Open(context.Background(), filepath.Join(dir, "chapters.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assets, err := assetfs.New(filepath.Join(dir, "uploads"), "/uploads", "manga")
	require.NoError(t, err)

	repository := chapter.NewSQLiteRepository(db)
	if views == nil {
		views = chapter.NewDirectViewCounter(repository)
	}

	f := &fixture{
		db:         db,
		repository: repository,
		assets:     assets,
		service:    chapter.NewService(repository, assets, views, nil),
	}
	f.workID = f.seedWork(t, "Solo Leveling")
	t.Cleanup(f.service.Drain)
	return f
}

func (f *fixture) seedWork(t *testing.T, title string) string {
	t.Helper()
	id := uuid.New()
	_, err := f.db.Exec(`INSERT INTO core_work (id, title, coverurl, createdat) VALUES (?, ?, ?, ?)`,
		id, title, "/uploads/covers/"+id+".jpg", sqlite.FormatTime(time.Now()))
	require.NoError(t, err)
	return id
}

func (f *fixture) seedChapter(t *testing.T, owner *sec.AuthClaims, number float64) *chapter.Chapter {
	t.Helper()
	created := &chapter.Chapter{WorkID: f.workID, Number: number}
	require.NoError(t, f.service.CreateChapter(context.Background(), owner, created))
	return created
}

// seedPage writes an asset file and its page row.
func (f *fixture) seedPage(t *testing.T, chapterID string, number int) *chapter.Page {
	t.Helper()
	url, err := f.assets.Create(uuid.New()+".jpg", func(writer io.Writer) error {
		_, err := writer.Write([]byte("jpeg"))
		return err
	})
	require.NoError(t, err)

	page := &chapter.Page{ID: uuid.New(), ChapterID: chapterID, PageNumber: number, ImageURL: url}
	require.NoError(t, f.repository.CreatePage(context.Background(), page))
	return page
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
