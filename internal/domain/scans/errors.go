package scans

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("scan record not found")
	ErrNotSavable = errors.New("scan result cannot be saved")
)

// MediaError means an image could not be made durable. No record was written.
type MediaError struct {
	Field string
	Err   error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Field, e.Err)
}

func (e *MediaError) Unwrap() error   { return e.Err }
func (e *MediaError) Retryable() bool { return true }

// MetadataError means the record write failed after media upload.
// OrphanedKeys lists blobs that were uploaded and are not cleaned up.
type MetadataError struct {
	OrphanedKeys []string
	Err          error
}

func (e *MetadataError) Error() string {
	if len(e.OrphanedKeys) == 0 {
		return fmt.Sprintf("persist record: %v", e.Err)
	}
	return fmt.Sprintf("persist record: %v (orphaned: %s)", e.Err, strings.Join(e.OrphanedKeys, ", "))
}

func (e *MetadataError) Unwrap() error   { return e.Err }
func (e *MetadataError) Retryable() bool { return true }
