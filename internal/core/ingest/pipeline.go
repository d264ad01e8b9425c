// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/constants"
	"github.com/taibuivan/chapterhub/internal/platform/ctxutil"
	"github.com/taibuivan/chapterhub/internal/platform/scratch"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/internal/platform/validate"
)

// # Allow-list

var (
	// AllowedExtensions are the raster formats accepted in a batch.
	AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

	// AllowedMimeTypes are the declared content types accepted in a batch.
	AllowedMimeTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
)

// ValidateBatch rejects an empty batch or any item outside the allow-list.
func ValidateBatch(files []scratch.File) error {
	validator := &validate.Validator{}
	validator.Custom(constants.UploadFieldImages, len(files) == 0, "At least one image is required")

	for index, file := range files {
		field := fmt.Sprintf("%s[%d]", constants.UploadFieldImages, index)
		validator.Extension(field, file.OriginalName, AllowedExtensions...).
			OneOf(field, mediaType(file.MimeType), AllowedMimeTypes...)
	}

	return validator.Err()
}

func mediaType(declared string) string {
	parsed, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(declared))
	}
	return parsed
}

// # Pipeline

// Gate admits an actor to change the pages of a chapter.
type Gate interface {
	Authorize(context context.Context, actor *sec.AuthClaims, chapterID string) (*chapter.Chapter, error)
}

// Pipeline runs a validated batch through normalisation, registration and cleanup.
type Pipeline struct {
	gate       Gate
	normalizer *Normalizer
	registrar  *Registrar
	reaper     *Reaper
	itemDelay  time.Duration
	metrics    *Metrics
	sleep      func(d time.Duration)

	batches sync.WaitGroup
}

// NewPipeline wires the stages of the ingestion pipeline.
func NewPipeline(gate Gate, normalizer *Normalizer, registrar *Registrar, reaper *Reaper, itemDelay time.Duration, metrics *Metrics) *Pipeline {
	return &Pipeline{
		gate:       gate,
		normalizer: normalizer,
		registrar:  registrar,
		reaper:     reaper,
		itemDelay:  itemDelay,
		metrics:    metrics,
		sleep:      time.Sleep,
	}
}

/*
Ingest adds files to a chapter as new pages.

Validation and authorization happen before any work. Once the batch starts it
runs to completion, independent of the caller's cancellation. Every scratch
file is swept when Ingest returns, whatever the outcome.

Parameters:
  - context: context.Context
  - actor: *sec.AuthClaims
  - chapterID: string
  - files: []scratch.File (in submission order)

Returns:
  - *Result: Registered pages and per-item failures
  - error: Validation, NotFound, Forbidden, or a failure before the first item
*/
func (pipeline *Pipeline) Ingest(context context.Context, actor *sec.AuthClaims, chapterID string, files []scratch.File) (*Result, error) {
	pipeline.batches.Add(1)
	defer pipeline.batches.Done()

	work := ctxutil.Detach(context)
	defer pipeline.reaper.Sweep(work, scratch.Paths(files))

	if err := ValidateBatch(files); err != nil {
		return nil, err
	}

	if _, err := pipeline.gate.Authorize(context, actor, chapterID); err != nil {
		return nil, err
	}

	offset, err := pipeline.registrar.Offset(work, chapterID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("ingest: failed to read page offset: %w", err))
	}

	result := &Result{Pages: []*chapter.Page{}}
	for index, file := range files {
		if index > 0 && pipeline.itemDelay > 0 {
			pipeline.sleep(pipeline.itemDelay)
		}
		pipeline.processItem(work, result, chapterID, file, index+1, offset)
	}

	stats := result.Stats()
	ctxutil.GetLogger(work).Info("batch_ingested",
		slog.String("chapter_id", chapterID),
		slog.Int("total", stats.Total),
		slog.Int("success", stats.Success),
		slog.Int("failed", stats.Failed),
	)

	return result, nil
}

/*
Admit checks that actor may add pages to chapterID.

Handlers call it before accepting any upload bytes, so strangers and
unknown chapters are turned away without touching scratch storage.
*/
func (pipeline *Pipeline) Admit(context context.Context, actor *sec.AuthClaims, chapterID string) error {
	_, err := pipeline.gate.Authorize(context, actor, chapterID)
	return err
}

// Drain waits for running batches to finish and sweep their scratch files.
// Call it once the HTTP server has stopped accepting requests.
func (pipeline *Pipeline) Drain() {
	pipeline.batches.Wait()
}

// processItem normalises and registers one file. Any failure, including a
// panic, is recorded against the file and never escapes.
func (pipeline *Pipeline) processItem(context context.Context, result *Result, chapterID string, file scratch.File, position, offset int) {
	var pending string
	defer func() {
		if recovered := recover(); recovered != nil {
			if pending != "" {
				pipeline.registrar.discard(context, pending)
			}
			pipeline.fail(context, result, file, &ItemError{
				Reason: "unexpected error while processing image",
				Err:    fmt.Errorf("panic: %v", recovered),
			})
		}
	}()
	defer pipeline.reaper.RemoveOnce(context, file.Path)

	url, err := pipeline.normalizer.Normalize(context, file, chapterID, position)
	if err != nil {
		pipeline.fail(context, result, file, err)
		return
	}

	pending = url
	page, err := pipeline.registrar.Register(context, chapterID, url, offset+position)
	pending = ""
	if err != nil {
		pipeline.fail(context, result, file, err)
		return
	}

	result.Pages = append(result.Pages, page)
	pipeline.metrics.incItem(OutcomeRegistered)

	ctxutil.GetLogger(context).Debug("page_registered",
		slog.String("chapter_id", chapterID),
		slog.Int("page_number", page.PageNumber),
		slog.String("url", page.ImageURL),
	)
}

func (pipeline *Pipeline) fail(context context.Context, result *Result, file scratch.File, err error) {
	result.fail(file.OriginalName, err)
	pipeline.metrics.incItem(OutcomeFailed)

	cause := err
	var itemErr *ItemError
	if errors.As(err, &itemErr) && itemErr.Err != nil {
		cause = itemErr.Err
	}

	ctxutil.GetLogger(context).Warn("ingest_item_failed",
		slog.String("file", file.OriginalName),
		slog.String("reason", err.Error()),
		slog.Any("error", cause),
	)
}
