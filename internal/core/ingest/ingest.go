// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ingest turns an uploaded batch of raster images into the ordered pages
of a chapter.

Each item moves through three stages, one item at a time:

  - [Normalizer] decodes, fits and re-encodes the scratch file into a
    permanent JPEG asset.
  - [Registrar] records the asset as a page of the chapter.
  - [Reaper] removes the scratch file, immediately and again in a final sweep.

A failing item is recorded as a [Failure] and never stops its siblings.
*/
package ingest

import (
	"github.com/taibuivan/chapterhub/internal/core/chapter"
)

// Failure is one batch item that did not become a page.
type Failure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Stats counts the outcome of a batch.
type Stats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Result accumulates the registered pages and failed items of one batch.
type Result struct {
	Pages    []*chapter.Page
	Failures []Failure
}

// Stats derives the batch counters from the accumulated outcomes.
func (result *Result) Stats() Stats {
	return Stats{
		Total:   len(result.Pages) + len(result.Failures),
		Success: len(result.Pages),
		Failed:  len(result.Failures),
	}
}

func (result *Result) fail(file string, err error) {
	result.Failures = append(result.Failures, Failure{File: file, Error: err.Error()})
}
