// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/core/ingest"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

/*
TestRemoveOnce_RealFiles treats a missing file as already clean.
*/
func TestRemoveOnce_RealFiles(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)
	dir := t.TempDir()
	path := touch(t, dir, "a.png")

	assert.Equal(t, ingest.ScratchRemoved, reaper.RemoveOnce(context.Background(), path))
	assert.NoFileExists(t, path)
	assert.Equal(t, ingest.ScratchAbsent, reaper.RemoveOnce(context.Background(), path))
}

/*
TestRemoveOnce_OtherErrorIsLogged reports failure without retrying.
*/
func TestRemoveOnce_OtherErrorIsLogged(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)

	calls := 0
	ingest.SetReaperFS(reaper, func(string) error {
		calls++
		return &fs.PathError{Op: "remove", Path: "x", Err: fs.ErrPermission}
	}, nil, nil)

	assert.Equal(t, ingest.ScratchFailed, reaper.RemoveOnce(context.Background(), "x"))
	assert.Equal(t, 1, calls)
}

/*
TestSweep_RealFiles removes what is left and skips what is gone.
*/
func TestSweep_RealFiles(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)
	dir := t.TempDir()

	left := touch(t, dir, "left.png")
	gone := filepath.Join(dir, "gone.png")

	leftover := reaper.Sweep(context.Background(), []string{left, gone})
	assert.Empty(t, leftover)
	assert.NoFileExists(t, left)
}

/*
TestSweep_GivesUpOnOtherErrors stops after the first non-transient failure.
*/
func TestSweep_GivesUpOnOtherErrors(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)

	calls := map[string]int{}
	ingest.SetReaperFS(reaper,
		func(path string) error {
			calls[path]++
			if path == "locked-by-policy" {
				return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrPermission}
			}
			return nil
		},
		func(string) (fs.FileInfo, error) { return nil, nil },
		func(time.Duration) { t.Fatal("no retry expected") },
	)

	leftover := reaper.Sweep(context.Background(), []string{"locked-by-policy", "fine"})
	assert.Equal(t, []string{"locked-by-policy"}, leftover)
	assert.Equal(t, 1, calls["locked-by-policy"])
	assert.Equal(t, 1, calls["fine"])
}

/*
TestSweep_NotFoundDuringRemoveIsSuccess covers a file vanishing between stat and remove.
*/
func TestSweep_NotFoundDuringRemoveIsSuccess(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)
	ingest.SetReaperFS(reaper,
		func(path string) error { return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist} },
		func(string) (fs.FileInfo, error) { return nil, errors.New("stat raced") },
		nil,
	)

	assert.Empty(t, reaper.Sweep(context.Background(), []string{"racy"}))
}

/*
TestSweepDir_ReclaimsLeftovers clears files a dead process left behind and
tolerates a missing directory.
*/
func TestSweepDir_ReclaimsLeftovers(t *testing.T) {
	reaper := ingest.NewReaper(3, time.Millisecond, nil)
	dir := t.TempDir()
	stale := []string{touch(t, dir, "0190-a.png"), touch(t, dir, "0190-b.webp")}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	found, leftover, err := reaper.SweepDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, found)
	assert.Empty(t, leftover)
	for _, path := range stale {
		assert.NoFileExists(t, path)
	}
	assert.DirExists(t, filepath.Join(dir, "nested"))

	found, leftover, err = reaper.SweepDir(context.Background(), filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, found)
	assert.Empty(t, leftover)
}
