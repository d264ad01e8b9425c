// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package assetfs stores normalised chapter assets on the local filesystem.

Layout:

	<root>/<kind>/<name>   on disk
	<prefix>/<kind>/<name> as referenced from page rows

The directory is append-only from the ingestion pipeline's point of view:
every write creates a new file exclusively and never overwrites.
*/
package assetfs

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideStore is returned for URLs that do not address a file in this store.
	ErrOutsideStore = errors.New("assetfs: url is outside the asset store")

	// ErrInvalidName is returned for names that are not a single path element.
	ErrInvalidName = errors.New("assetfs: invalid asset name")
)

// Store writes, resolves and removes assets of one content kind.
type Store struct {
	root      string
	kind      string
	urlPrefix string
}

/*
New prepares the kind directory under root.

Parameters:
  - root: Filesystem root shared by every kind
  - urlPrefix: Absolute URL path the root is served under (e.g. "/uploads")
  - kind: Content partition (e.g. "manga")

Returns:
  - *Store: Ready store
  - error: Directory creation failure
*/
func New(root, urlPrefix, kind string) (*Store, error) {
	if kind == "" || strings.ContainsAny(kind, `/\`) {
		return nil, fmt.Errorf("assetfs: invalid kind %q", kind)
	}

	if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
		return nil, fmt.Errorf("assetfs: failed to create %s: %w", kind, err)
	}

	return &Store{
		root:      root,
		kind:      kind,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// # Writes

/*
Create writes a new asset named name through write and returns its URL.

The file is created exclusively. If write or close fails, the partial
file is removed so that a failed item leaves nothing on disk.
*/
func (store *Store) Create(name string, write func(io.Writer) error) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}

	fullPath := filepath.Join(store.root, store.kind, name)

	file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("assetfs: failed to create %s: %w", name, err)
	}

	writeErr := write(file)
	closeErr := file.Close()

	if err := errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("assetfs: failed to write %s: %w", name, err)
	}

	return store.URL(name), nil
}

// # Resolution

// URL returns the public URL of the asset named name.
func (store *Store) URL(name string) string {
	return path.Join(store.urlPrefix, store.kind, name)
}

// Path resolves a public asset URL to its file on disk.
func (store *Store) Path(url string) (string, error) {
	name, ok := strings.CutPrefix(url, path.Join(store.urlPrefix, store.kind)+"/")
	if !ok || !validName(name) {
		return "", ErrOutsideStore
	}
	return filepath.Join(store.root, store.kind, name), nil
}

// # Removal

// Remove deletes the file behind url. A missing file is reported with an
// error satisfying errors.Is(err, fs.ErrNotExist).
func (store *Store) Remove(url string) error {
	fullPath, err := store.Path(url)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("assetfs: failed to remove %s: %w", url, err)
	}
	return nil
}

// # Delivery

// Handler serves stored assets under the URL prefix. Directory listings are refused.
func (store *Store) Handler() http.Handler {
	files := http.FileServer(http.Dir(store.root))

	return http.StripPrefix(store.urlPrefix, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "" || strings.HasSuffix(request.URL.Path, "/") {
			http.NotFound(writer, request)
			return
		}
		writer.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(writer, request)
	}))
}

// Prefix returns the URL path the store is mounted under.
func (store *Store) Prefix() string {
	return store.urlPrefix
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
