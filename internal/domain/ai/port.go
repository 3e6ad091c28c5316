package ai

import (
	"context"

	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

// Client produces a plain-language narrative for a saved record.
type Client interface {
	Explain(ctx context.Context, rec *scans.Record) (string, error)
}
