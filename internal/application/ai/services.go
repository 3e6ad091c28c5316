package ai

import (
	"context"

	"github.com/bryanwahyu/neuroscan/internal/domain/ai"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

type Service struct {
	client  ai.Client
	records scans.Repository
}

// NewService returns a service that answers ai.ErrDisabled when client is nil.
func NewService(client ai.Client, records scans.Repository) *Service {
	return &Service{client: client, records: records}
}

// Explain narrates a saved record of owner.
func (s *Service) Explain(ctx context.Context, owner string, id scans.RecordID) (string, error) {
	if s.client == nil {
		return "", ai.ErrDisabled
	}
	rec, err := s.records.Get(ctx, owner, id)
	if err != nil {
		return "", err
	}
	return s.client.Explain(ctx, rec)
}
