// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sqlite_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/platform/dberr"
	"github.com/taibuivan/chapterhub/internal/platform/sqlite"
)

func open(t *testing.T) func(query string, args ...any) error {
	t.Helper()

	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "store.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return func(query string, args ...any) error {
		_, err := db.Exec(query, args...)
		return err
	}
}

/*
TestOpen_Constraints verifies the unique constraints and the page cascade.
*/
func TestOpen_Constraints(t *testing.T) {
	exec := open(t)
	now := sqlite.FormatTime(time.Now())

	require.NoError(t, exec(`INSERT INTO core_work (id, title, createdat) VALUES ('w1', 'Work', ?)`, now))
	require.NoError(t, exec(`INSERT INTO core_chapter (id, workid, uploaderid, chapternumber, createdat, updatedat) VALUES ('c1', 'w1', 'u1', 10.5, ?, ?)`, now, now))
	require.NoError(t, exec(`INSERT INTO core_page (id, chapterid, pagenumber, imageurl, createdat, updatedat) VALUES ('p1', 'c1', 1, '/uploads/manga/a.jpg', ?, ?)`, now, now))

	// Duplicate (chapter, page number)
	err := exec(`INSERT INTO core_page (id, chapterid, pagenumber, imageurl, createdat, updatedat) VALUES ('p2', 'c1', 1, '/uploads/manga/b.jpg', ?, ?)`, now, now)
	require.Error(t, err)
	assert.True(t, dberr.IsUniqueViolation(err))

	// Duplicate (work, chapter number)
	err = exec(`INSERT INTO core_chapter (id, workid, uploaderid, chapternumber, createdat, updatedat) VALUES ('c2', 'w1', 'u1', 10.5, ?, ?)`, now, now)
	assert.True(t, dberr.IsUniqueViolation(err))

	// Null asset path
	err = exec(`INSERT INTO core_page (id, chapterid, pagenumber, imageurl, createdat, updatedat) VALUES ('p3', 'c1', 2, NULL, ?, ?)`, now, now)
	assert.Error(t, err)

	// Cascade
	require.NoError(t, exec(`DELETE FROM core_chapter WHERE id = 'c1'`))
	err = exec(`INSERT INTO core_page (id, chapterid, pagenumber, imageurl, createdat, updatedat) VALUES ('p4', 'c1', 1, '/x.jpg', ?, ?)`, now, now)
	assert.Error(t, err, "foreign keys must be enforced")
}

/*
TestTable_Mapping translates schema-qualified names.
*/
func TestTable_Mapping(t *testing.T) {
	assert.Equal(t, "core_page", sqlite.Table("core.page"))
	assert.Equal(t, "plain", sqlite.Table("plain"))
}

/*
TestTime_RoundTrip keeps nanosecond precision in UTC.
*/
func TestTime_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.FixedZone("JST", 9*3600))

	parsed, err := sqlite.ParseTime(sqlite.FormatTime(now))
	require.NoError(t, err)
	assert.True(t, now.Equal(parsed))

	_, err = sqlite.ParseTime("yesterday")
	assert.Error(t, err)
}
