// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/ctxutil"
	"github.com/taibuivan/chapterhub/internal/platform/sec"
)

// asUser injects fixed claims the way the authentication middleware would.
func asUser(claims *sec.AuthClaims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if claims != nil {
				request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
			}
			next.ServeHTTP(writer, request)
		})
	}
}

func newRouter(f *fixture, claims *sec.AuthClaims) http.Handler {
	router := chi.NewRouter()
	router.Use(asUser(claims))
	chapter.NewHandler(f.service).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var request *http.Request
	if body == "" {
		request = httptest.NewRequest(method, target, nil)
	} else {
		request = httptest.NewRequest(method, target, strings.NewReader(body))
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHandler_ListPagesShape checks the reader-facing body of an ordered read.
*/
func TestHandler_ListPagesShape(t *testing.T) {
	f := newFixture(t)
	owner := f.seedChapter(t, uploader, 3)
	f.seedPage(t, owner.ID, 2)
	f.seedPage(t, owner.ID, 1)

	recorder := serve(newRouter(f, nil), http.MethodGet, "/chapters/"+owner.ID+"/pages", "")
	f.service.Drain()
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
		Pages   []struct {
			PageNumber int    `json:"page_number"`
			ImageURL   string `json:"image_url"`
		} `json:"pages"`
		Chapter struct {
			ID     string  `json:"id"`
			Number float64 `json:"chapter_number"`
			Work   struct {
				Title string `json:"title"`
			} `json:"work"`
		} `json:"chapter"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Pages, 2)
	assert.Equal(t, 1, body.Pages[0].PageNumber)
	assert.True(t, strings.HasPrefix(body.Pages[0].ImageURL, "/uploads/manga/"))
	assert.Equal(t, owner.ID, body.Chapter.ID)
	assert.Equal(t, 3.0, body.Chapter.Number)
	assert.Equal(t, "Solo Leveling", body.Chapter.Work.Title)
}

/*
TestHandler_ListPagesErrors maps malformed and unknown identifiers.
*/
func TestHandler_ListPagesErrors(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f, nil)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/chapters/not-a-uuid/pages", "").Code)

	recorder := serve(router, http.MethodGet, "/chapters/0190f3a2-7c1e-7d4b-9a55-3f2d1c0b9e8a/pages", "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"code":"NOT_FOUND"`)
	assert.Contains(t, recorder.Body.String(), `"success":false`)
}

/*
TestHandler_DeleteChapterGate answers 401, 403 then 200 depending on the caller.
*/
func TestHandler_DeleteChapterGate(t *testing.T) {
	f := newFixture(t)
	owner := f.seedChapter(t, uploader, 1)
	f.seedPage(t, owner.ID, 1)
	target := "/chapters/" + owner.ID

	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(f, nil), http.MethodDelete, target, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(newRouter(f, stranger), http.MethodDelete, target, "").Code)
	assert.Equal(t, 1, f.count(t, "core_page"))

	recorder := serve(newRouter(f, uploader), http.MethodDelete, target, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"success":true,"message":"Chapter deleted"}`, recorder.Body.String())
	assert.Zero(t, f.count(t, "core_page"))
}

/*
TestHandler_CreateChapter requires the author role and a well-formed payload.
*/
func TestHandler_CreateChapter(t *testing.T) {
	f := newFixture(t)
	target := "/works/" + f.workID + "/chapters"
	reader := &sec.AuthClaims{UserID: "reader-4", Role: string(sec.RoleMember)}

	assert.Equal(t, http.StatusForbidden, serve(newRouter(f, reader), http.MethodPost, target, `{"chapter_number":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(newRouter(f, uploader), http.MethodPost, target, `{"chapter_number":1,"extra":true}`).Code)

	recorder := serve(newRouter(f, uploader), http.MethodPost, target, `{"chapter_number":42,"title":"Arise"}`)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var body struct {
		Data struct {
			ID         string  `json:"id"`
			UploaderID string  `json:"uploader_id"`
			Number     float64 `json:"chapter_number"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	assert.Equal(t, uploader.UserID, body.Data.UploaderID)
	assert.Equal(t, 42.0, body.Data.Number)
}
