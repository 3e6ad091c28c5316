package samples

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("sample not found")

// Repository port (owner-scoped sample metadata)
type Repository interface {
	Create(ctx context.Context, img *Image) error
	Get(ctx context.Context, owner string, id SampleID) (*Image, error)
	List(ctx context.Context, owner string, limit int) ([]*Image, error)
	Delete(ctx context.Context, owner string, id SampleID) error
}
