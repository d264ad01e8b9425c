// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"log/slog"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/config"
	"github.com/taibuivan/chapterhub/internal/platform/ctxutil"
	"github.com/taibuivan/chapterhub/internal/platform/dberr"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

// PageStore is the part of the chapter store the registrar writes to.
type PageStore interface {
	CreatePage(context context.Context, page *chapter.Page) error
	MaxPageNumber(context context.Context, chapterID string) (int, error)
}

// Registrar records normalised assets as pages of a chapter.
type Registrar struct {
	pages     PageStore
	assets    AssetWriter
	numbering string
}

// NewRegistrar builds a [Registrar] using one of the config.Numbering* policies.
func NewRegistrar(pages PageStore, assets AssetWriter, numbering string) *Registrar {
	return &Registrar{pages: pages, assets: assets, numbering: numbering}
}

/*
Offset returns the number added to a batch position to obtain its page number.

Under the append policy new pages follow the chapter's current last page.
Under the batch policy numbering restarts at 1 for every batch, so a second
batch collides with the pages of the first.
*/
func (registrar *Registrar) Offset(context context.Context, chapterID string) (int, error) {
	if registrar.numbering == config.NumberingBatch {
		return 0, nil
	}
	return registrar.pages.MaxPageNumber(context, chapterID)
}

/*
Register creates the page row for url.

If the row cannot be written the asset is removed, so no file outlives a
failed registration.

Returns:
  - *chapter.Page: The created page
  - error: *ItemError (page number taken or store failure)
*/
func (registrar *Registrar) Register(context context.Context, chapterID, url string, number int) (*chapter.Page, error) {
	page := &chapter.Page{
		ID:         uuid.New(),
		ChapterID:  chapterID,
		PageNumber: number,
		ImageURL:   url,
	}

	err := registrar.pages.CreatePage(context, page)
	if err == nil {
		return page, nil
	}

	registrar.discard(context, url)

	if dberr.IsUniqueViolation(err) {
		return nil, &ItemError{Reason: "page number already exists in this chapter", Err: err}
	}
	return nil, &ItemError{Reason: "failed to register page", Err: err}
}

// discard removes an asset whose page was never recorded.
func (registrar *Registrar) discard(context context.Context, url string) {
	if err := registrar.assets.Remove(url); err != nil {
		ctxutil.GetLogger(context).Warn("orphan_asset_remove_failed",
			slog.String("url", url),
			slog.Any("error", err),
		)
	}
}
