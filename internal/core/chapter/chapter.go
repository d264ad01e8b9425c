// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package chapter manages chapters and their ordered page sequences.

# Core Responsibility

  - Serialisation: [Chapter] numbering per work, including half-chapters like 10.5.
  - Delivery: ordered [Page] retrieval with a best-effort view counter.
  - Reclamation: deleting a chapter or page removes its backing asset files
    before the rows, tolerating files that are already gone.

Pages are created only by the ingestion pipeline; this package never writes them.
*/
package chapter

import "time"

// # Catalogue Summary

// Work is the read-only summary of the title a chapter belongs to.
type Work struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	CoverURL *string `json:"cover_url"`
}

// # Chapter Aggregate

// Chapter is a numbered unit of content belonging to a [Work].
type Chapter struct {
	ID         string    `json:"id"`
	WorkID     string    `json:"work_id"`
	UploaderID string    `json:"uploader_id"`
	Number     float64   `json:"chapter_number"` // Supports half-chapters (e.g. 12.5)
	Title      *string   `json:"title"`
	ViewCount  int64     `json:"views"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Work is populated by single-chapter lookups.
	Work *Work `json:"work,omitempty"`
}

// # Image Delivery

// Page is one normalised image at a 1-based position within a [Chapter].
type Page struct {
	ID         string    `json:"id"`
	ChapterID  string    `json:"chapter_id"`
	PageNumber int       `json:"page_number"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// # Filter Criteria

// ChapterFilter holds parameters for listing a work's chapters.
type ChapterFilter struct {
	SortDir string // "asc" or "desc" by chapter number; desc by default
}

// Descending reports whether chapters should be listed newest first.
func (filter ChapterFilter) Descending() bool {
	return filter.SortDir != "asc"
}

// # Read Model

// PageListing is the result of the ordered read path.
type PageListing struct {
	Chapter *Chapter
	Pages   []*Page
}
