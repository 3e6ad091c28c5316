package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS scan_records (
  id                  VARCHAR(36)  NOT NULL PRIMARY KEY,
  owner_id            VARCHAR(128) NOT NULL,
  name                VARCHAR(255) NOT NULL,
  scanned_at          DATETIME(3)  NOT NULL,
  has_tumor           TINYINT(1)   NOT NULL DEFAULT 0,
  confidence          DOUBLE       NOT NULL DEFAULT 0,
  tumor_type          VARCHAR(128) NOT NULL DEFAULT '',
  tumor_size          VARCHAR(128) NOT NULL DEFAULT '',
  tumor_location      VARCHAR(255) NOT NULL DEFAULT '',
  image_ref           TEXT         NOT NULL,
  processed_image_ref TEXT         NOT NULL,
  from_sample         TINYINT(1)   NOT NULL DEFAULT 0,
  sample_id           VARCHAR(64)  NOT NULL DEFAULT '',
  KEY idx_scan_records_owner_time (owner_id, scanned_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sample_images (
  id           VARCHAR(36)  NOT NULL PRIMARY KEY,
  owner_id     VARCHAR(128) NOT NULL,
  name         VARCHAR(255) NOT NULL,
  image_ref    TEXT         NOT NULL,
  storage_path VARCHAR(512) NOT NULL,
  content_type VARCHAR(64)  NOT NULL,
  size_bytes   BIGINT       NOT NULL DEFAULT 0,
  created_at   DATETIME(3)  NOT NULL,
  KEY idx_sample_images_owner_time (owner_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
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
