// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/chapterhub/internal/platform/middleware"
	requestutil "github.com/taibuivan/chapterhub/internal/platform/request"
	"github.com/taibuivan/chapterhub/internal/platform/respond"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
	"github.com/taibuivan/chapterhub/pkg/pagination"
)

const (
	FieldSuccess = "success"
	FieldMessage = "message"
)

// # Handler Implementation

// Handler implements the HTTP layer for chapter metadata, reads and deletion.
type Handler struct {
	service *Service
}

// NewHandler constructs a new chapter [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches chapter and page endpoints to the API router.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	// Public reads
	api.Get("/works/{workID}/chapters", handler.ListChapters)
	api.Get("/chapters/{id}", handler.GetChapter)
	api.Get("/chapters/{id}/pages", handler.ListPages)

	// Authors create chapters
	api.Group(func(author chi.Router) {
		author.Use(middleware.RequireRole(sec.RoleAuthor))
		author.Post("/works/{workID}/chapters", handler.CreateChapter)
	})

	// Uploader or administrator, enforced by the service gate
	api.Group(func(owner chi.Router) {
		owner.Use(middleware.RequireAuth)
		owner.Patch("/chapters/{id}", handler.UpdateChapter)
		owner.Delete("/chapters/{id}", handler.DeleteChapter)
		owner.Delete("/pages/{id}", handler.DeletePage)
	})
}

// # Chapter Metadata

/*
GET /api/v1/works/{workID}/chapters.

Description: Returns a paginated list of a work's chapters.

Request:
  - workID: string (UUID)
  - dir: string (asc, desc)
  - limit: int
  - page: int

Response:
  - 200: []Chapter: Paginated list
  - 404: NOT_FOUND: Work not found
*/
func (handler *Handler) ListChapters(writer http.ResponseWriter, request *http.Request) {
	workID, err := requestutil.ID(request, "workID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)
	filter := ChapterFilter{SortDir: request.URL.Query().Get("dir")}

	chapters, total, err := handler.service.ListChapters(request.Context(), workID, filter, params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, chapters, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GET /api/v1/chapters/{id}.

Response:
  - 200: Chapter: With work summary
  - 404: NOT_FOUND: Chapter not found
*/
func (handler *Handler) GetChapter(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.GetChapter(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

// createChapterRequest is the inbound JSON schema for chapter creation.
type createChapterRequest struct {
	Number float64 `json:"chapter_number"`
	Title  *string `json:"title"`
}

/*
POST /api/v1/works/{workID}/chapters.

Description: Creates a chapter owned by the caller.

Response:
  - 201: Chapter: Created chapter
  - 400: Validation: Invalid payload
  - 403: ErrForbidden: Role below author
  - 404: NOT_FOUND: Work not found
  - 409: ErrConflict: Chapter number already used in this work
*/
func (handler *Handler) CreateChapter(writer http.ResponseWriter, request *http.Request) {
	workID, err := requestutil.ID(request, "workID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createChapterRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter := &Chapter{WorkID: workID, Number: input.Number, Title: input.Title}
	if err := handler.service.CreateChapter(request.Context(), requestutil.Claims(request), chapter); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, chapter)
}

// updateChapterRequest is the inbound JSON schema for chapter updates.
type updateChapterRequest struct {
	Number *float64 `json:"chapter_number"`
	Title  *string  `json:"title"`
}

/*
PATCH /api/v1/chapters/{id}.

Response:
  - 200: Chapter: Updated chapter
  - 403: ErrForbidden: Not the uploader or an administrator
  - 404: NOT_FOUND: Chapter not found
  - 409: ErrConflict: Chapter number already used in this work
*/
func (handler *Handler) UpdateChapter(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateChapterRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter, err := handler.service.UpdateChapter(request.Context(), requestutil.Claims(request), id, ChapterPatch{
		Number: input.Number,
		Title:  input.Title,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, chapter)
}

// # Ordered Read

// chapterSummary is the chapter block of the page listing.
type chapterSummary struct {
	ID     string  `json:"id"`
	Number float64 `json:"chapter_number"`
	Title  *string `json:"title"`
	Views  int64   `json:"views"`
	Work   *Work   `json:"work"`
}

// pageListingResponse is the body of the ordered page read.
type pageListingResponse struct {
	Success bool           `json:"success"`
	Pages   []*Page        `json:"pages"`
	Chapter chapterSummary `json:"chapter"`
	Count   int            `json:"count"`
}

/*
GET /api/v1/chapters/{id}/pages.

Description: Returns the chapter's pages in ascending order and counts a view
in the background.

Response:
  - 200: pageListingResponse
  - 404: NOT_FOUND: Chapter not found
*/
func (handler *Handler) ListPages(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	listing, err := handler.service.ListPages(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	chapter := listing.Chapter
	respond.JSON(writer, http.StatusOK, pageListingResponse{
		Success: true,
		Pages:   listing.Pages,
		Chapter: chapterSummary{
			ID:     chapter.ID,
			Number: chapter.Number,
			Title:  chapter.Title,
			Views:  chapter.ViewCount,
			Work:   chapter.Work,
		},
		Count: len(listing.Pages),
	})
}

// # Reclamation

/*
DELETE /api/v1/chapters/{id}.

Response:
  - 200: {success, message}
  - 403: ErrForbidden: Not the uploader or an administrator
  - 404: NOT_FOUND: Chapter not found
*/
func (handler *Handler) DeleteChapter(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.service.DeleteChapter(request.Context(), requestutil.Claims(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, map[string]any{
		FieldSuccess: true,
		FieldMessage: "Chapter deleted",
	})
}

/*
DELETE /api/v1/pages/{id}.

Response:
  - 200: {success, message}
  - 403: ErrForbidden: Not the parent chapter's uploader or an administrator
  - 404: NOT_FOUND: Page not found
*/
func (handler *Handler) DeletePage(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePage(request.Context(), requestutil.Claims(request), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, map[string]any{
		FieldSuccess: true,
		FieldMessage: "Page deleted",
	})
}
