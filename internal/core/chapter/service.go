// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/constants"
	"github.com/taibuivan/chapterhub/internal/platform/ctxutil"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/internal/platform/validate"
	"github.com/taibuivan/chapterhub/pkg/pointer"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

const (
	FieldWorkID        = "work_id"
	FieldChapterNumber = "chapter_number"
	FieldTitle         = "title"
)

// maxTitleLength bounds chapter titles.
const maxTitleLength = 255

// Chapter numbers are stored as NUMERIC(10, 2).
const (
	chapterNumberPrecision = 10
	chapterNumberScale     = 2
)

// deletionFanOut caps concurrent file removals per chapter.
const deletionFanOut = 8

// AssetRemover deletes the file behind a page's asset URL.
type AssetRemover interface {
	Remove(url string) error
}

// # Service Layer

// Service orchestrates chapter metadata, ordered page reads and reclamation.
type Service struct {
	repository Repository
	assets     AssetRemover
	views      ViewCounter
	metrics    *Metrics

	inflight sync.WaitGroup
}

// NewService constructs a new [Service] with its collaborators.
func NewService(repository Repository, assets AssetRemover, views ViewCounter, metrics *Metrics) *Service {
	return &Service{
		repository: repository,
		assets:     assets,
		views:      views,
		metrics:    metrics,
	}
}

// # Chapter Metadata

/*
ListChapters returns one page of a work's chapters.

Returns:
  - []*Chapter: Chapters of the work
  - int: Total chapter count
  - error: NotFound if the work does not exist
*/
func (service *Service) ListChapters(context context.Context, workID string, filter ChapterFilter, limit, offset int) ([]*Chapter, int, error) {
	if _, err := service.repository.FindWork(context, workID); err != nil {
		return nil, 0, err
	}
	return service.repository.ListByWork(context, workID, filter, limit, offset)
}

// GetChapter returns a chapter with its work summary.
func (service *Service) GetChapter(context context.Context, id string) (*Chapter, error) {
	return service.repository.FindByID(context, id)
}

/*
CreateChapter records a new chapter owned by actor.

Parameters:
  - context: context.Context
  - actor: *sec.AuthClaims (becomes the uploader)
  - chapter: *Chapter (WorkID, Number, Title)

Returns:
  - error: Validation, NotFound (work) or Conflict (duplicate number)
*/
func (service *Service) CreateChapter(context context.Context, actor *sec.AuthClaims, chapter *Chapter) error {
	if actor == nil {
		return apperr.Unauthorized("Authentication required")
	}

	chapter.Title = normalizeTitle(chapter.Title)

	validator := &validate.Validator{}
	validator.Required(FieldWorkID, chapter.WorkID).
		Finite(FieldChapterNumber, chapter.Number).
		Numeric(FieldChapterNumber, chapter.Number, chapterNumberPrecision, chapterNumberScale)
	if chapter.Title != nil {
		validator.MaxLen(FieldTitle, *chapter.Title, maxTitleLength)
	}
	if err := validator.Err(); err != nil {
		return err
	}

	work, err := service.repository.FindWork(context, chapter.WorkID)
	if err != nil {
		return err
	}

	chapter.ID = uuid.New()
	chapter.UploaderID = actor.UserID

	if err := service.repository.Create(context, chapter); err != nil {
		return err
	}
	chapter.Work = work

	ctxutil.GetLogger(context).Info("chapter_created",
		slog.String("chapter_id", chapter.ID),
		slog.String("work_id", chapter.WorkID),
		slog.Float64("number", chapter.Number),
	)

	return nil
}

// ChapterPatch carries the optional fields of a chapter update.
type ChapterPatch struct {
	Number *float64
	Title  *string
}

/*
UpdateChapter changes a chapter's number and/or title.

Returns:
  - *Chapter: Updated chapter
  - error: NotFound, Forbidden, Validation or Conflict
*/
func (service *Service) UpdateChapter(context context.Context, actor *sec.AuthClaims, id string, patch ChapterPatch) (*Chapter, error) {
	chapter, err := service.Authorize(context, actor, id)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	if patch.Number != nil {
		validator.Finite(FieldChapterNumber, *patch.Number).
			Numeric(FieldChapterNumber, *patch.Number, chapterNumberPrecision, chapterNumberScale)
		chapter.Number = *patch.Number
	}
	if patch.Title != nil {
		validator.MaxLen(FieldTitle, *patch.Title, maxTitleLength)
		chapter.Title = normalizeTitle(patch.Title)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.repository.Update(context, chapter); err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).Info("chapter_updated", slog.String("chapter_id", id))
	return chapter, nil
}

// # Ordered Read

/*
ListPages returns a chapter and its pages in ascending page order.

A view increment is started in the background; it never delays or fails
the read. A chapter without pages yields an empty, non-nil slice.

Returns:
  - *PageListing: Chapter summary and ordered pages
  - error: NotFound if the chapter does not exist
*/
func (service *Service) ListPages(context context.Context, chapterID string) (*PageListing, error) {
	chapter, err := service.repository.FindByID(context, chapterID)
	if err != nil {
		return nil, err
	}

	pages, err := service.repository.ListPages(context, chapterID)
	if err != nil {
		return nil, err
	}

	service.countView(context, chapterID)

	return &PageListing{Chapter: chapter, Pages: pages}, nil
}

// countView fires a detached, time-bounded view increment.
func (service *Service) countView(parent context.Context, chapterID string) {
	service.inflight.Add(1)

	go func() {
		defer service.inflight.Done()

		background, cancel := context.WithTimeout(ctxutil.Detach(parent), constants.ViewIncrementTimeout)
		defer cancel()

		err := service.views.Increment(background, chapterID)
		service.metrics.IncViewIncrement(err == nil)
		if err != nil {
			ctxutil.GetLogger(background).Warn("view_increment_failed",
				slog.String("chapter_id", chapterID),
				slog.Any("error", err),
			)
		}
	}()
}

// Drain waits for background view increments to settle.
func (service *Service) Drain() {
	service.inflight.Wait()
}

// # Reclamation

// DeletionReport summarises the settled file deletions of one delete call.
type DeletionReport struct {
	Attempted int `json:"attempted"`
	Removed   int `json:"removed"`
	Missing   int `json:"missing"`
	Failed    int `json:"failed"`
}

/*
DeleteChapter removes a chapter, its pages and their asset files.

Every file deletion is attempted and its outcome collected before the
chapter row is deleted. File failures never stop the row deletion; the
page rows follow through the foreign key cascade.

Returns:
  - DeletionReport: Settled file outcomes
  - error: NotFound or Forbidden before any mutation, or a store failure
*/
func (service *Service) DeleteChapter(context context.Context, actor *sec.AuthClaims, id string) (DeletionReport, error) {
	if _, err := service.Authorize(context, actor, id); err != nil {
		return DeletionReport{}, err
	}

	pages, err := service.repository.ListPages(context, id)
	if err != nil {
		return DeletionReport{}, err
	}

	report := service.removeAssets(context, pages)

	if err := service.repository.Delete(context, id); err != nil {
		return report, err
	}

	ctxutil.GetLogger(context).Info("chapter_deleted",
		slog.String("chapter_id", id),
		slog.Int("pages", len(pages)),
		slog.Int("files_removed", report.Removed),
		slog.Int("files_missing", report.Missing),
		slog.Int("files_failed", report.Failed),
	)

	return report, nil
}

/*
DeletePage removes one page and its asset file.

The parent chapter's uploader or an administrator may do this. A failed
file deletion is logged and the row is deleted regardless.
*/
func (service *Service) DeletePage(context context.Context, actor *sec.AuthClaims, pageID string) error {
	page, err := service.repository.FindPage(context, pageID)
	if err != nil {
		return err
	}

	if _, err := service.Authorize(context, actor, page.ChapterID); err != nil {
		return err
	}

	outcome := service.removeAsset(context, page)

	if err := service.repository.DeletePage(context, pageID); err != nil {
		return err
	}

	ctxutil.GetLogger(context).Info("page_deleted",
		slog.String("page_id", pageID),
		slog.String("chapter_id", page.ChapterID),
		slog.String("file", outcome),
	)

	return nil
}

// removeAssets attempts every deletion and waits for all of them to settle.
func (service *Service) removeAssets(context context.Context, pages []*Page) DeletionReport {
	outcomes := make([]string, len(pages))

	var group errgroup.Group
	group.SetLimit(deletionFanOut)

	for index, page := range pages {
		group.Go(func() error {
			outcomes[index] = service.removeAsset(context, page)
			return nil
		})
	}
	_ = group.Wait()

	var report DeletionReport
	for _, outcome := range outcomes {
		switch outcome {
		case "":
			continue
		case OutcomeRemoved:
			report.Removed++
		case OutcomeMissing:
			report.Missing++
		default:
			report.Failed++
		}
		report.Attempted++
	}

	return report
}

// removeAsset deletes one page file and classifies the result. Pages
// without an asset path report "".
func (service *Service) removeAsset(context context.Context, page *Page) string {
	if page.ImageURL == "" {
		return ""
	}

	err := service.assets.Remove(page.ImageURL)

	var outcome string
	switch {
	case err == nil:
		outcome = OutcomeRemoved
	case errors.Is(err, fs.ErrNotExist):
		outcome = OutcomeMissing
	default:
		outcome = OutcomeFailed
		ctxutil.GetLogger(context).Warn("asset_delete_failed",
			slog.String("page_id", page.ID),
			slog.String("url", page.ImageURL),
			slog.Any("error", err),
		)
	}

	service.metrics.IncAssetDeletion(outcome)
	return outcome
}

// # Authorization

// Authorize loads a chapter and admits only its uploader or an administrator.
func (service *Service) Authorize(context context.Context, actor *sec.AuthClaims, chapterID string) (*Chapter, error) {
	if actor == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	chapter, err := service.repository.FindByID(context, chapterID)
	if err != nil {
		return nil, err
	}

	if !sec.CanMutate(actor, chapter.UploaderID) {
		return nil, apperr.Forbidden("Only the uploader or an administrator may modify this chapter")
	}

	return chapter, nil
}

// normalizeTitle maps blank titles to nil.
func normalizeTitle(title *string) *string {
	trimmed := strings.TrimSpace(pointer.Val(title))
	if trimmed == "" {
		return nil
	}
	return pointer.To(trimmed)
}
