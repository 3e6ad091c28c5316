package media

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by stores when a key does not exist.
var ErrObjectNotFound = errors.New("media: object not found")

// Store port (durable blob storage for images).
type Store interface {
	// Put writes data under key and returns its durable reference.
	Put(ctx context.Context, key string, data []byte, contentType string) (Ref, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
