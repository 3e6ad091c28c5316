// Package sqlite opens an embedded database for single-node and test runs.
// The mysql repositories run unchanged on it.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Connect opens path (":memory:" for a private in-process database) and creates the schema.
func Connect(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "neuroscan.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS scan_records (
		id                  TEXT PRIMARY KEY,
		owner_id            TEXT NOT NULL,
		name                TEXT NOT NULL,
		scanned_at          DATETIME NOT NULL,
		has_tumor           BOOLEAN NOT NULL DEFAULT 0,
		confidence          REAL NOT NULL DEFAULT 0,
		tumor_type          TEXT NOT NULL DEFAULT '',
		tumor_size          TEXT NOT NULL DEFAULT '',
		tumor_location      TEXT NOT NULL DEFAULT '',
		image_ref           TEXT NOT NULL,
		processed_image_ref TEXT NOT NULL DEFAULT '',
		from_sample         BOOLEAN NOT NULL DEFAULT 0,
		sample_id           TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_records_owner_time ON scan_records (owner_id, scanned_at)`,
	`CREATE TABLE IF NOT EXISTS sample_images (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		name         TEXT NOT NULL,
		image_ref    TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes   INTEGER NOT NULL DEFAULT 0,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_images_owner_time ON sample_images (owner_id, created_at)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
