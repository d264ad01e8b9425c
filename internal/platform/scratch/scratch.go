// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package scratch receives inbound upload batches into a temporary directory.

Each part of the configured multipart field is streamed straight to disk; no
part is buffered in memory. The caller receives one [File] per stored part
and owns their removal from then on.
*/
package scratch

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taibuivan/chapterhub/internal/platform/apperr"
	"github.com/taibuivan/chapterhub/pkg/slice"
	"github.com/taibuivan/chapterhub/pkg/slug"
	"github.com/taibuivan/chapterhub/pkg/uuid"
)

// multipartOverhead leaves room for part headers and boundaries on top of the file payloads.
const multipartOverhead = 1 << 20

// File is one received item: where it landed and what the client claimed it was.
type File struct {
	Path         string
	OriginalName string
	MimeType     string
}

// Paths returns the scratch path of every file.
func Paths(files []File) []string {
	return slice.Map(files, func(file File) string { return file.Path })
}

// Limits bounds a single batch.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// Receiver streams multipart batches into a scratch directory.
type Receiver struct {
	dir    string
	field  string
	limits Limits
}

/*
NewReceiver prepares dir and returns a receiver for the given form field.

Returns:
  - *Receiver: Ready receiver
  - error: Directory creation failure
*/
func NewReceiver(dir, field string, limits Limits) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("scratch: failed to create %s: %w", dir, err)
	}
	return &Receiver{dir: dir, field: field, limits: limits}, nil
}

// Dir returns the scratch directory.
func (receiver *Receiver) Dir() string {
	return receiver.dir
}

/*
Receive stores every file part of the receiver's field.

On any error the files already written for this request are removed before
returning, so a rejected batch leaves no scratch behind.

Returns:
  - []File: Stored items in submission order (possibly empty)
  - error: apperr validation, 413 or internal error
*/
func (receiver *Receiver) Receive(writer http.ResponseWriter, request *http.Request) (files []File, err error) {
	limit := int64(receiver.limits.MaxFiles)*receiver.limits.MaxFileBytes + multipartOverhead
	request.Body = http.MaxBytesReader(writer, request.Body, limit)

	reader, err := request.MultipartReader()
	if err != nil {
		return nil, apperr.ValidationError("Request must be multipart/form-data")
	}

	defer func() {
		if err != nil {
			for _, file := range files {
				_ = os.Remove(file.Path)
			}
			files = nil
		}
	}()

	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			return files, nil
		}
		if nextErr != nil {
			return files, classifyReadError(nextErr)
		}

		if part.FormName() != receiver.field || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		if len(files) >= receiver.limits.MaxFiles {
			_ = part.Close()
			return files, apperr.ValidationError(fmt.Sprintf("At most %d files may be uploaded at once", receiver.limits.MaxFiles))
		}

		file, storeErr := receiver.store(part)
		_ = part.Close()
		if storeErr != nil {
			return files, storeErr
		}
		files = append(files, file)
	}
}

// store streams one part to a fresh scratch file.
func (receiver *Receiver) store(part *multipart.Part) (File, error) {
	originalName := filepath.Base(part.FileName())
	target := filepath.Join(receiver.dir, scratchName(originalName))

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return File{}, apperr.Internal(fmt.Errorf("scratch: failed to create file: %w", err))
	}

	written, copyErr := io.Copy(out, io.LimitReader(part, receiver.limits.MaxFileBytes+1))
	closeErr := out.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(target)
		return File{}, classifyReadError(copyErr)
	case closeErr != nil:
		_ = os.Remove(target)
		return File{}, apperr.Internal(fmt.Errorf("scratch: failed to close file: %w", closeErr))
	case written > receiver.limits.MaxFileBytes:
		_ = os.Remove(target)
		return File{}, apperr.TooLarge(fmt.Sprintf("File %q exceeds the %d byte limit", originalName, receiver.limits.MaxFileBytes))
	}

	return File{
		Path:         target,
		OriginalName: originalName,
		MimeType:     part.Header.Get("Content-Type"),
	}, nil
}

// scratchName builds "<uuid>-<slug><ext>" so concurrent batches never collide.
func scratchName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	stem := slug.From(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if stem == "" {
		stem = "upload"
	}
	return uuid.New() + "-" + stem + ext
}

func classifyReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperr.TooLarge("Upload batch is too large")
	}
	return apperr.ValidationError("Malformed multipart body")
}
