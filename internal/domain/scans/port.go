package scans

import (
	"context"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// Repository port (owner-scoped metadata store for records)
type Repository interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, owner string, id RecordID) (*Record, error)
	Latest(ctx context.Context, owner string, limit int) ([]*Record, error)
	Delete(ctx context.Context, owner string, id RecordID) error
	Summary(ctx context.Context, owner string, sinceDays int) (Summary, error)

	// CountByImageRef counts records whose original or processed image is ref.
	CountByImageRef(ctx context.Context, owner string, ref media.Ref) (int, error)
}
