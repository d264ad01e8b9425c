// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ingest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"

	"github.com/taibuivan/chapterhub/internal/platform/scratch"
)

// CanonicalExt is the extension of every normalised asset.
const CanonicalExt = "jpg"

// # Item Errors

// ItemError is a per-item failure. Reason is safe to return to the client;
// Err keeps the underlying cause for logs.
type ItemError struct {
	Reason string
	Err    error
}

func (e *ItemError) Error() string { return e.Reason }

func (e *ItemError) Unwrap() error { return e.Err }

// # Codec

// DefaultMaxPixels caps the declared size of a source image when the codec sets none.
const DefaultMaxPixels = 50_000_000

// Codec holds the fixed output constraints of the normaliser.
type Codec struct {
	MaxDimension int
	Quality      int

	// MaxPixels bounds width*height of a source before it is decoded.
	MaxPixels int64
}

func (codec Codec) pixelBudget() int64 {
	if codec.MaxPixels > 0 {
		return codec.MaxPixels
	}
	return DefaultMaxPixels
}

// DecoderGate bounds the number of images decoded at once across the process.
type DecoderGate struct {
	slots *semaphore.Weighted
}

// NewDecoderGate allows at most n concurrent decodes. Create it once at startup.
func NewDecoderGate(n int64) *DecoderGate {
	return &DecoderGate{slots: semaphore.NewWeighted(n)}
}

// AssetWriter stores and removes permanent asset files.
type AssetWriter interface {
	Create(name string, write func(io.Writer) error) (string, error)
	Remove(url string) error
}

// # Normaliser

// Normalizer converts one scratch image into a permanent canonical asset.
type Normalizer struct {
	codec   Codec
	gate    *DecoderGate
	assets  AssetWriter
	metrics *Metrics
	now     func() time.Time
}

// NewNormalizer builds a [Normalizer] sharing the process-wide gate.
func NewNormalizer(codec Codec, gate *DecoderGate, assets AssetWriter, metrics *Metrics) *Normalizer {
	return &Normalizer{
		codec:   codec,
		gate:    gate,
		assets:  assets,
		metrics: metrics,
		now:     time.Now,
	}
}

// AssetName is the permanent file name of the page at position within a batch.
// The nanosecond suffix keeps repeated uploads to one chapter apart.
func AssetName(chapterID string, position int, at time.Time) string {
	return fmt.Sprintf("chapter-%s-page-%d-%d.%s", chapterID, position, at.UnixNano(), CanonicalExt)
}

/*
Normalize decodes file, fits it within the codec's bounds and writes it as a
JPEG asset.

Parameters:
  - context: context.Context (bounds the wait for the decoder gate)
  - file: scratch.File
  - chapterID: string
  - position: int (1-based position within the batch)

Returns:
  - string: URL of the written asset
  - error: *ItemError (corrupt, oversized, or unwritable); nothing is written on failure
*/
func (normalizer *Normalizer) Normalize(context context.Context, file scratch.File, chapterID string, position int) (string, error) {
	if err := normalizer.gate.slots.Acquire(context, 1); err != nil {
		return "", &ItemError{Reason: "processing cancelled", Err: err}
	}
	defer normalizer.gate.slots.Release(1)

	started := time.Now()
	defer func() { normalizer.metrics.observeNormalize(time.Since(started)) }()

	source, err := normalizer.decode(file.Path)
	if err != nil {
		return "", err
	}

	canvas := normalizer.fit(source)

	name := AssetName(chapterID, position, normalizer.now())
	url, err := normalizer.assets.Create(name, func(writer io.Writer) error {
		return imaging.Encode(writer, canvas, imaging.JPEG, imaging.JPEGQuality(normalizer.codec.Quality))
	})
	if err != nil {
		return "", &ItemError{Reason: "failed to store normalised image", Err: err}
	}

	return url, nil
}

// decode reads the header of path first and refuses sources whose declared
// dimensions exceed the pixel budget, so a tiny file cannot demand a huge canvas.
func (normalizer *Normalizer) decode(path string) (image.Image, error) {
	handle, err := os.Open(path)
	if err != nil {
		return nil, &ItemError{Reason: "unsupported or corrupt image", Err: err}
	}
	defer handle.Close()

	header, format, err := image.DecodeConfig(handle)
	if err != nil {
		return nil, &ItemError{Reason: "unsupported or corrupt image", Err: err}
	}

	budget := normalizer.codec.pixelBudget()
	if pixels := int64(header.Width) * int64(header.Height); pixels > budget {
		return nil, &ItemError{
			Reason: "image dimensions too large",
			Err:    fmt.Errorf("%s source is %dx%d, over the %d pixel budget", format, header.Width, header.Height, budget),
		}
	}

	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		return nil, &ItemError{Reason: "unsupported or corrupt image", Err: err}
	}

	source, err := imaging.Decode(handle, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ItemError{Reason: "unsupported or corrupt image", Err: err}
	}
	return source, nil
}

// fit shrinks img to the codec bounds, never enlarging it, and flattens any
// transparency onto white since JPEG has no alpha channel.
func (normalizer *Normalizer) fit(img image.Image) image.Image {
	bound := normalizer.codec.MaxDimension
	fitted := imaging.Fit(img, bound, bound, imaging.Lanczos)

	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return fitted
	}

	size := fitted.Bounds().Size()
	background := imaging.New(size.X, size.Y, color.White)
	return imaging.Overlay(background, fitted, image.Pt(0, 0), 1.0)
}
