package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scan_records (
  id                  VARCHAR(36)  PRIMARY KEY,
  owner_id            VARCHAR(128) NOT NULL,
  name                VARCHAR(255) NOT NULL,
  scanned_at          TIMESTAMPTZ  NOT NULL,
  has_tumor           BOOLEAN      NOT NULL DEFAULT FALSE,
  confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
  tumor_type          VARCHAR(128) NOT NULL DEFAULT '',
  tumor_size          VARCHAR(128) NOT NULL DEFAULT '',
  tumor_location      VARCHAR(255) NOT NULL DEFAULT '',
  image_ref           TEXT         NOT NULL,
  processed_image_ref TEXT         NOT NULL DEFAULT '',
  from_sample         BOOLEAN      NOT NULL DEFAULT FALSE,
  sample_id           VARCHAR(64)  NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_records_owner_time ON scan_records (owner_id, scanned_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sample_images (
  id           VARCHAR(36)  PRIMARY KEY,
  owner_id     VARCHAR(128) NOT NULL,
  name         VARCHAR(255) NOT NULL,
  image_ref    TEXT         NOT NULL,
  storage_path VARCHAR(512) NOT NULL,
  content_type VARCHAR(64)  NOT NULL,
  size_bytes   BIGINT       NOT NULL DEFAULT 0,
  created_at   TIMESTAMPTZ  NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sample_images_owner_time ON sample_images (owner_id, created_at DESC)`,
}

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func mapNoRows(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}
