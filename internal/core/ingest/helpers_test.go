// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/core/ingest"
	"github.com/taibuivan/chapterhub/internal/platform/assetfs"
	"github.com/taibuivan/chapterhub/internal/platform/scratch"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/internal/platform/sqlite"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

var (
	uploader = &sec.AuthClaims{UserID: "uploader-1", Role: string(sec.RoleAuthor)}
	stranger = &sec.AuthClaims{UserID: "stranger-2", Role: string(sec.RoleAuthor)}
)

var testCodec = ingest.Codec{MaxDimension: 2000, Quality: 80}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture wires the whole pipeline over SQLite and temp directories.
type fixture struct {
	db         *sql.DB
	repository chapter.Repository
	chapters   *chapter.Service
	assets     *assetfs.Store
	assetDir   string
	scratchDir string
	pipeline   *ingest.Pipeline
	workID     string
}

func newFixture(t *testing.T, numbering string) *fixture {
	t.Helper()
	return newFixtureWithStore(t, numbering, nil)
}

// newFixtureWithStore lets a test put a different page store behind the registrar.
func newFixtureWithStore(t *testing.T, numbering string, wrap func(chapter.Repository) ingest.PageStore) *fixture {
	t.Helper()

	dir := t.TempDir()
	db, err := sqlite.Open(context.Background(), filepath.Join(dir, "ingest.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assets, err := assetfs.New(filepath.Join(dir, "uploads"), "/uploads", "manga")
	require.NoError(t, err)

	scratchDir := filepath.Join(dir, "scratch")
	require.NoError(t, os.MkdirAll(scratchDir, 0o700))

	repository := chapter.NewSQLiteRepository(db)
	chapters := chapter.NewService(repository, assets, chapter.NewDirectViewCounter(repository), nil)
	t.Cleanup(chapters.Drain)

	var pages ingest.PageStore = repository
	if wrap != nil {
		pages = wrap(repository)
	}

	pipeline := ingest.NewPipeline(
		chapters,
		ingest.NewNormalizer(testCodec, ingest.NewDecoderGate(1), assets, nil),
		ingest.NewRegistrar(pages, assets, numbering),
		ingest.NewReaper(3, time.Millisecond, nil),
		0,
		nil,
	)

	f := &fixture{
		db:         db,
		repository: repository,
		chapters:   chapters,
		assets:     assets,
		assetDir:   filepath.Join(dir, "uploads", "manga"),
		scratchDir: scratchDir,
		pipeline:   pipeline,
	}

	f.workID = uuid.New()
	_, err = db.Exec(`INSERT INTO core_work (id, title, createdat) VALUES (?, ?, ?)`,
		f.workID, "Omniscient Reader", sqlite.FormatTime(time.Now()))
	require.NoError(t, err)

	return f
}

func (f *fixture) newChapter(t *testing.T, number float64) string {
	t.Helper()
	created := &chapter.Chapter{WorkID: f.workID, Number: number}
	require.NoError(t, f.chapters.CreateChapter(context.Background(), uploader, created))
	return created.ID
}

// scratchFile writes data to the scratch directory as if it had just been received.
func (f *fixture) scratchFile(t *testing.T, originalName, mimeType string, data []byte) scratch.File {
	t.Helper()
	path := filepath.Join(f.scratchDir, uuid.New()+"-"+originalName)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return scratch.File{Path: path, OriginalName: originalName, MimeType: mimeType}
}

// validBatch builds n small PNG items named page-1.png .. page-n.png.
func (f *fixture) validBatch(t *testing.T, n int) []scratch.File {
	t.Helper()
	files := make([]scratch.File, 0, n)
	for i := 1; i <= n; i++ {
		files = append(files, f.scratchFile(t, fmt.Sprintf("page-%d.png", i), "image/png", pngBytes(t, 40, 60)))
	}
	return files
}

func (f *fixture) scratchLeft(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.scratchDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func (f *fixture) assetCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.assetDir)
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) pageNumbers(t *testing.T, chapterID string) []int {
	t.Helper()
	pages, err := f.repository.ListPages(context.Background(), chapterID)
	require.NoError(t, err)
	numbers := make([]int, 0, len(pages))
	for _, page := range pages {
		numbers = append(numbers, page.PageNumber)
	}
	return numbers
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
