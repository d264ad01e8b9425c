// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/middleware"
	requestutil "github.com/taibuivan/chapterhub/internal/platform/request"
	"github.com/taibuivan/chapterhub/internal/platform/respond"
	"github.com/taibuivan/chapterhub/internal/platform/scratch"
)

// Receiver stores an inbound multipart batch as scratch files.
type Receiver interface {
	Receive(writer http.ResponseWriter, request *http.Request) ([]scratch.File, error)
}

// # Handler Implementation

// Handler implements the page upload endpoint.
type Handler struct {
	receiver Receiver
	pipeline *Pipeline
}

// NewHandler constructs a new ingestion [Handler].
func NewHandler(receiver Receiver, pipeline *Pipeline) *Handler {
	return &Handler{receiver: receiver, pipeline: pipeline}
}

// RegisterRoutes attaches the upload endpoint. Uploads stream whole batches,
// so the router group must not carry the global request timeout.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Group(func(upload chi.Router) {
		upload.Use(middleware.RequireAuth)
		upload.Post("/chapters/{id}/pages", handler.UploadPages)
	})
}

// uploadResponse is the body of a completed batch.
type uploadResponse struct {
	Success     bool            `json:"success"`
	Pages       []*chapter.Page `json:"pages"`
	Stats       Stats           `json:"stats"`
	FailedFiles []Failure       `json:"failedFiles,omitempty"`
}

/*
POST /api/v1/chapters/{id}/pages.

Description: Normalises a multipart batch of images (field "images") and adds
them to the chapter as pages, in submission order. The chapter and the
caller's ownership are checked before the body is read.

Response:
  - 201: uploadResponse: Batch completed, possibly with failed items
  - 400: Validation: Empty batch or disallowed file type
  - 401: ErrUnauthorized: No token
  - 403: ErrForbidden: Not the uploader or an administrator
  - 404: NOT_FOUND: Chapter not found
  - 413: ErrTooLarge: File or batch over the ceiling
*/
func (handler *Handler) UploadPages(writer http.ResponseWriter, request *http.Request) {
	chapterID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.pipeline.Admit(request.Context(), requestutil.Claims(request), chapterID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	files, err := handler.receiver.Receive(writer, request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.pipeline.Ingest(request.Context(), requestutil.Claims(request), chapterID, files)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats := result.Stats()
	respond.JSON(writer, http.StatusCreated, uploadResponse{
		Success:     true,
		Pages:       result.Pages,
		Stats:       stats,
		FailedFiles: result.Failures,
	})
}
