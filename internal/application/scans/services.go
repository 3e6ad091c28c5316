package scans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bryanwahyu/neuroscan/internal/application"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	domain "github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/logger"
	"github.com/bryanwahyu/neuroscan/internal/metrics"
)

const module = "scans"

var tracer = otel.Tracer("neuroscan/scans")

// Service persists scan results and serves saved records.
// Service is safe for concurrent use.
type Service struct {
	Repo   domain.Repository
	Media  media.Store
	Clock  application.Clock
	Stamps *application.Stamper
	Log    logger.ILogger
}

// persistJob is the state threaded through the persist steps.
type persistJob struct {
	owner    string
	name     string
	stamp    int64
	result   domain.Result
	uploaded []string
	record   *domain.Record
}

type persistStep struct {
	name string
	run  func(ctx context.Context, j *persistJob) error
}

// Persist makes every image of result durable, then writes exactly one record.
// Steps run strictly in order and the first failure stops the rest, so a
// media failure never reaches the metadata write.
func (s *Service) Persist(ctx context.Context, result domain.Result, name, owner string) (domain.RecordID, error) {
	if owner == "" {
		return "", fmt.Errorf("%w: owner id required", domain.ErrNotSavable)
	}
	if result.Error {
		return "", fmt.Errorf("%w: analysis failed", domain.ErrNotSavable)
	}

	ctx, span := tracer.Start(ctx, "scans.Persist")
	defer span.End()
	span.SetAttributes(attribute.String("owner", owner))

	job := &persistJob{
		owner:  owner,
		name:   name,
		stamp:  s.stamps().Next(),
		result: result,
	}
	steps := []persistStep{
		{"original", s.materialize("original", true, func(j *persistJob) *media.Ref { return &j.result.ImageRef })},
		{"processed", s.materialize("processed", false, func(j *persistJob) *media.Ref { return &j.result.ProcessedImageRef })},
		{"record", s.writeRecord},
	}
	for _, st := range steps {
		if err := st.run(ctx, job); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, st.name)
			s.logFailure(owner, st.name, job, err)
			return "", err
		}
	}

	metrics.RecordsPersisted.Inc()
	s.log().Info(module, "scan record saved", map[string]interface{}{
		"owner":  owner,
		"record": string(job.record.ID),
		"blobs":  len(job.uploaded),
	})
	return job.record.ID, nil
}

// materialize uploads the field when it is still inline and swaps in the durable ref.
func (s *Service) materialize(kind string, required bool, field func(*persistJob) *media.Ref) func(context.Context, *persistJob) error {
	return func(ctx context.Context, j *persistJob) error {
		ref := field(j)
		switch ref.Kind() {
		case media.KindDurable:
			if *ref == "" && required {
				return &domain.MediaError{Field: kind, Err: errors.New("missing image reference")}
			}
			return nil
		case media.KindPlaceholder:
			if required {
				return &domain.MediaError{Field: kind, Err: errors.New("no image to persist")}
			}
			*ref = ""
			return nil
		case media.KindLocal:
			return &domain.MediaError{Field: kind, Err: fmt.Errorf("session-local reference cannot be uploaded")}
		}

		contentType, data, err := ref.Decode()
		if err != nil {
			return &domain.MediaError{Field: kind, Err: err}
		}
		key := ImageKey(j.owner, kind, j.stamp)
		durable, err := s.Media.Put(ctx, key, data, contentType)
		if err != nil {
			return &domain.MediaError{Field: kind, Err: err}
		}
		j.uploaded = append(j.uploaded, key)
		*ref = durable
		return nil
	}
}

func (s *Service) writeRecord(ctx context.Context, j *persistJob) error {
	now := s.now().UTC()
	name := j.name
	if name == "" {
		name = "Brain Scan " + now.Format("2006-01-02 15:04")
	}
	rec := &domain.Record{
		ID:                domain.RecordID(uuid.New().String()),
		OwnerID:           j.owner,
		Name:              name,
		Timestamp:         now,
		Result:            j.result.Findings,
		ImageRef:          j.result.ImageRef,
		ProcessedImageRef: j.result.ProcessedImageRef,
		Provenance:        j.result.Provenance,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return &domain.MetadataError{OrphanedKeys: append([]string(nil), j.uploaded...), Err: err}
	}
	j.record = rec
	return nil
}

func (s *Service) logFailure(owner, step string, j *persistJob, err error) {
	kind := "metadata"
	var me *domain.MediaError
	if errors.As(err, &me) {
		kind = "media"
	}
	metrics.PersistFailures.WithLabelValues(kind).Inc()
	s.log().Error(module, "persist failed", map[string]interface{}{
		"owner":    owner,
		"step":     step,
		"orphaned": j.uploaded,
		"error":    err,
	})
}

// ImageKey is the owner-scoped blob key for a scan image.
func ImageKey(owner, kind string, stamp int64) string {
	return fmt.Sprintf("owners/%s/images/%s/%d.jpg", owner, kind, stamp)
}

// Latest ambil N record terakhir
func (s *Service) Latest(ctx context.Context, owner string, limit int) ([]*domain.Record, error) {
	return s.Repo.Latest(ctx, owner, limit)
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	return s.Repo.Get(ctx, owner, id)
}

// Delete removes the record only. Its blobs stay in storage.
func (s *Service) Delete(ctx context.Context, owner string, id domain.RecordID) error {
	if err := s.Repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.log().Info(module, "scan record deleted", map[string]interface{}{"owner": owner, "record": string(id)})
	return nil
}

// Summary rekap hasil scan N hari terakhir
func (s *Service) Summary(ctx context.Context, owner string, sinceDays int) (domain.Summary, error) {
	return s.Repo.Summary(ctx, owner, sinceDays)
}

var defaultStamps = application.NewStamper(application.SystemClock{})

func (s *Service) stamps() *application.Stamper {
	if s.Stamps == nil {
		return defaultStamps
	}
	return s.Stamps
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) log() logger.ILogger {
	if s.Log == nil {
		return logger.NewNop()
	}
	return s.Log
}
