// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import "context"

// # Chapter Data Access

// ChapterRepository defines the data access contract for chapters.
type ChapterRepository interface {

	/*
		ListByWork returns a page of chapters for a work, ordered by chapter number.

		Parameters:
		  - context: context.Context
		  - workID: string (UUID)
		  - filter: ChapterFilter
		  - limit: int
		  - offset: int

		Returns:
		  - []*Chapter: Chapters without the work summary
		  - int: Total chapters of the work
		  - error: Storage failures
	*/
	ListByWork(context context.Context, workID string, filter ChapterFilter, limit, offset int) ([]*Chapter, int, error)

	/*
		FindByID returns the chapter with its parent work summary.

		Returns:
		  - *Chapter: Hydrated chapter
		  - error: apperr.NotFound if missing
	*/
	FindByID(context context.Context, id string) (*Chapter, error)

	/*
		FindWork returns the summary of a work.

		Returns:
		  - *Work: Work summary
		  - error: apperr.NotFound if missing
	*/
	FindWork(context context.Context, id string) (*Work, error)

	/*
		Create persists a new chapter.

		Returns:
		  - error: Conflict on a duplicate (work, number) pair
	*/
	Create(context context.Context, chapter *Chapter) error

	/*
		Update persists a chapter's number and title.

		Returns:
		  - error: NotFound, or Conflict on a duplicate (work, number) pair
	*/
	Update(context context.Context, chapter *Chapter) error

	/*
		Delete removes the chapter row. Its pages go with it through the
		foreign key cascade.

		Returns:
		  - error: NotFound if missing
	*/
	Delete(context context.Context, id string) error

	/*
		IncrementViewCount atomically adds delta to the view counter.

		Returns:
		  - error: Atomic update failure
	*/
	IncrementViewCount(context context.Context, id string, delta int64) error
}

// # Page Data Access

// PageRepository defines the data access contract for pages.
type PageRepository interface {

	/*
		ListPages returns all pages of a chapter ordered by page number.

		Returns:
		  - []*Page: Possibly empty, never nil
		  - error: Retrieval failure
	*/
	ListPages(context context.Context, chapterID string) ([]*Page, error)

	/*
		FindPage returns a single page.

		Returns:
		  - *Page: The page
		  - error: apperr.NotFound if missing
	*/
	FindPage(context context.Context, id string) (*Page, error)

	/*
		CreatePage inserts one page row.

		Returns:
		  - error: Conflict (wrapping dberr.ErrUniqueViolation) when the
		    page number is taken
	*/
	CreatePage(context context.Context, page *Page) error

	/*
		DeletePage removes one page row.

		Returns:
		  - error: NotFound if missing
	*/
	DeletePage(context context.Context, id string) error

	/*
		MaxPageNumber returns the highest page number of a chapter, or 0.
	*/
	MaxPageNumber(context context.Context, chapterID string) (int, error)
}

// Repository is a store that serves both chapters and pages.
type Repository interface {
	ChapterRepository
	PageRepository
}
