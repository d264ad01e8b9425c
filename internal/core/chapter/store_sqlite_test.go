// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/chapterhub/internal/core/chapter"
	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/internal/platform/dberr"
	"github.com/taibuivan/chapterhub/pkg/pointer"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

/*
TestRepository_ChapterLifecycle covers create, lookup, listing and update.
*/
func TestRepository_ChapterLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := &chapter.Chapter{ID: uuid.New(), WorkID: f.workID, UploaderID: "u", Number: 1}
	half := &chapter.Chapter{ID: uuid.New(), WorkID: f.workID, UploaderID: "u", Number: 1.5, Title: pointer.To("Omake")}
	require.NoError(t, f.repository.Create(ctx, first))
	require.NoError(t, f.repository.Create(ctx, half))
	assert.False(t, first.CreatedAt.IsZero())

	found, err := f.repository.FindByID(ctx, half.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, found.Number)
	assert.Equal(t, "Omake", *found.Title)
	require.NotNil(t, found.Work)
	assert.Equal(t, "Solo Leveling", found.Work.Title)

	chapters, total, err := f.repository.ListByWork(ctx, f.workID, chapter.ChapterFilter{SortDir: "asc"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, chapters, 2)
	assert.Equal(t, first.ID, chapters[0].ID)

	chapters, _, err = f.repository.ListByWork(ctx, f.workID, chapter.ChapterFilter{}, 1, 0)
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, half.ID, chapters[0].ID)

	first.Number = 2
	first.Title = nil
	require.NoError(t, f.repository.Update(ctx, first))

	missing := &chapter.Chapter{ID: uuid.New(), Number: 3}
	assert.Equal(t, http.StatusNotFound, apperr.As(f.repository.Update(ctx, missing)).HTTPStatus)
}

/*
TestRepository_DuplicateChapterNumber is a conflict.
*/
func TestRepository_DuplicateChapterNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.repository.Create(ctx, &chapter.Chapter{ID: uuid.New(), WorkID: f.workID, UploaderID: "u", Number: 10.5}))

	err := f.repository.Create(ctx, &chapter.Chapter{ID: uuid.New(), WorkID: f.workID, UploaderID: "u", Number: 10.5})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperr.As(err).HTTPStatus)
	assert.True(t, dberr.IsUniqueViolation(err))
}

/*
TestRepository_Pages covers ordering, max number, collisions and cascade.
*/
func TestRepository_Pages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.seedChapter(t, uploader, 1)

	highest, err := f.repository.MaxPageNumber(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, highest)

	f.seedPage(t, owner.ID, 3)
	f.seedPage(t, owner.ID, 1)
	f.seedPage(t, owner.ID, 2)

	pages, err := f.repository.ListPages(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	for index, page := range pages {
		assert.Equal(t, index+1, page.PageNumber)
	}

	highest, err = f.repository.MaxPageNumber(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, highest)

	err = f.repository.CreatePage(ctx, &chapter.Page{ID: uuid.New(), ChapterID: owner.ID, PageNumber: 2, ImageURL: "/uploads/manga/x.jpg"})
	assert.True(t, dberr.IsUniqueViolation(err))

	require.NoError(t, f.repository.Delete(ctx, owner.ID))
	assert.Zero(t, f.count(t, "core_page"))

	_, err = f.repository.FindByID(ctx, owner.ID)
	assert.Equal(t, http.StatusNotFound, apperr.As(err).HTTPStatus)
	assert.Equal(t, http.StatusNotFound, apperr.As(f.repository.Delete(ctx, owner.ID)).HTTPStatus)
	assert.Equal(t, http.StatusNotFound, apperr.As(f.repository.DeletePage(ctx, uuid.New())).HTTPStatus)
}

/*
TestRepository_EmptyChapterListsNoPages returns an empty, non-nil slice.
*/
func TestRepository_EmptyChapterListsNoPages(t *testing.T) {
	f := newFixture(t)
	owner := f.seedChapter(t, uploader, 1)

	pages, err := f.repository.ListPages(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, pages)
	assert.Empty(t, pages)
}
