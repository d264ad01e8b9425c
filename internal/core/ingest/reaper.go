// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/taibuivan/chapterhub/internal/platform/ctxutil"
)

// Scratch removal outcomes.
const (
	ScratchRemoved  = "removed"
	ScratchAbsent   = "absent"
	ScratchDeferred = "deferred"
	ScratchFailed   = "failed"
)

// Reaper removes scratch files once their batch item has been consumed.
//
// Removal happens in two phases: a single attempt right after each item
// ([Reaper.RemoveOnce]) and a bounded-retry pass over the whole batch at the
// end ([Reaper.Sweep]). Neither phase ever fails the batch.
type Reaper struct {
	attempts  int
	baseDelay time.Duration
	metrics   *Metrics

	remove func(name string) error
	stat   func(name string) (fs.FileInfo, error)
	sleep  func(d time.Duration)
}

// NewReaper builds a [Reaper] that tries each file up to attempts times,
// waiting attempt*baseDelay after a busy error.
func NewReaper(attempts int, baseDelay time.Duration, metrics *Metrics) *Reaper {
	return &Reaper{
		attempts:  attempts,
		baseDelay: baseDelay,
		metrics:   metrics,
		remove:    os.Remove,
		stat:      os.Stat,
		sleep:     time.Sleep,
	}
}

/*
RemoveOnce makes a single removal attempt.

A missing file counts as removed. A busy file is left for the sweep; any
other error is logged.

Returns:
  - string: One of the Scratch* outcomes
*/
func (reaper *Reaper) RemoveOnce(context context.Context, path string) string {
	err := reaper.remove(path)

	var outcome string
	switch {
	case err == nil:
		outcome = ScratchRemoved
	case errors.Is(err, fs.ErrNotExist):
		outcome = ScratchAbsent
	case isBusy(err):
		outcome = ScratchDeferred
		ctxutil.GetLogger(context).Debug("scratch_remove_deferred", slog.String("path", path))
	default:
		outcome = ScratchFailed
		ctxutil.GetLogger(context).Warn("scratch_remove_failed",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}

	reaper.metrics.incScratchRemoval(outcome)
	return outcome
}

/*
Sweep makes sure none of paths remain on disk.

Every path is handled independently:

 1. absent: already clean
 2. removal attempted up to the configured limit
 3. busy: wait attempt*baseDelay, then retry
 4. not found: clean
 5. any other error: log and give up on that path

Returns:
  - []string: Paths that could not be removed
*/
func (reaper *Reaper) Sweep(context context.Context, paths []string) []string {
	var leftover []string
	for _, path := range paths {
		if !reaper.sweepOne(context, path) {
			leftover = append(leftover, path)
		}
	}

	if len(leftover) > 0 {
		ctxutil.GetLogger(context).Warn("scratch_sweep_incomplete",
			slog.Int("leftover", len(leftover)),
			slog.Int("total", len(paths)),
		)
	}
	return leftover
}

/*
SweepDir sweeps every regular file left in dir by a previous process.

Call it at startup, before any batch can write to dir. A missing directory
is treated as clean.

Returns:
  - int: Number of files found
  - []string: Paths that could not be removed
  - error: The directory could not be listed
*/
func (reaper *Reaper) SweepDir(context context.Context, dir string) (int, []string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	return len(paths), reaper.Sweep(context, paths), nil
}

func (reaper *Reaper) sweepOne(context context.Context, path string) bool {
	if _, err := reaper.stat(path); errors.Is(err, fs.ErrNotExist) {
		return true
	}

	logger := ctxutil.GetLogger(context)

	for attempt := 1; attempt <= reaper.attempts; attempt++ {
		err := reaper.remove(path)

		switch {
		case err == nil:
			reaper.metrics.incScratchRemoval(ScratchRemoved)
			return true

		case errors.Is(err, fs.ErrNotExist):
			reaper.metrics.incScratchRemoval(ScratchAbsent)
			return true

		case isBusy(err):
			if attempt < reaper.attempts {
				reaper.sleep(time.Duration(attempt) * reaper.baseDelay)
			}

		default:
			reaper.metrics.incScratchRemoval(ScratchFailed)
			logger.Warn("scratch_sweep_failed", slog.String("path", path), slog.Any("error", err))
			return false
		}
	}

	reaper.metrics.incScratchRemoval(ScratchFailed)
	logger.Warn("scratch_sweep_exhausted",
		slog.String("path", path),
		slog.Int("attempts", reaper.attempts),
	)
	return false
}
