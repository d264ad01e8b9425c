// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sqlite opens the embedded single-file store used for local
// development and tests. It mirrors the PostgreSQL schema, including the
// unique constraints and the page cascade the chapter store relies on.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// modernc registers the "sqlite" driver.
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// TimeLayout is the text encoding of every timestamp column.
const TimeLayout = time.RFC3339Nano

// foreign_keys and busy_timeout are per-connection settings, so they travel
// in the DSN where the driver applies them to every pooled connection.
const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

/*
Open creates the database file if needed and applies the schema.

Parameters:
  - context: Bounds schema application
  - path: Filesystem path to the database file
  - logger: Structured logger

Returns:
  - *sql.DB: Ready handle
  - error: Open, pragma or schema failure
*/
func Open(context context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?"+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open: %w", err)
	}

	if _, err := db.ExecContext(context, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply pragma: %w", err)
	}

	if _, err := db.ExecContext(context, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	logger.Info("sqlite_store_opened", slog.String("path", path))
	return db, nil
}

// Table maps a schema-qualified table name ("core.page") to its SQLite
// equivalent ("core_page").
func Table(name string) string {
	return strings.Replace(name, ".", "_", 1)
}

// FormatTime encodes t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a stored timestamp.
func ParseTime(value string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: invalid timestamp %q: %w", value, err)
	}
	return t, nil
}
