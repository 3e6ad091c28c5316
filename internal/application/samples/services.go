package samples

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/bryanwahyu/neuroscan/internal/application"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/domain/notify"
	domain "github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/logger"
)

const (
	module       = "samples"
	defaultLimit = 20
)

var (
	ErrUnsupportedType = errors.New("sample must be a jpeg, png, gif or bmp image")
	ErrEmpty           = errors.New("sample image is empty")
)

var sampleTypes = map[string]string{
	"image/jpeg":     ".jpg",
	"image/png":      ".png",
	"image/gif":      ".gif",
	"image/bmp":      ".bmp",
	"image/x-ms-bmp": ".bmp",
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Service manages an owner's library of reusable sample images.
type Service struct {
	Repo   domain.Repository
	Media  media.Store
	Clock  application.Clock
	Stamps *application.Stamper
	Log    logger.ILogger
	// Notifier is optional.
	Notifier notify.Notifier

	// Records is consulted before purging a blob. Required when PurgeBlobs is set.
	Records    scans.Repository
	PurgeBlobs bool
	Limit      int
}

// List returns the owner's samples, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]*domain.Image, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.Repo.List(ctx, owner, limit)
}

func (s *Service) Get(ctx context.Context, owner string, id domain.SampleID) (*domain.Image, error) {
	return s.Repo.Get(ctx, owner, id)
}

// Add uploads the bytes, then writes the sample entry that references them.
func (s *Service) Add(ctx context.Context, owner string, data []byte, name string) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mt := mimetype.Detect(data).String()
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	ext, ok := sampleTypes[mt]
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrUnsupportedType, mt)
	}

	filename := SafeFilename(name, ext)
	key := SampleKey(owner, s.stamps().Next(), filename)
	ref, err := s.Media.Put(ctx, key, data, mt)
	if err != nil {
		return nil, fmt.Errorf("upload sample: %w", err)
	}

	display := strings.TrimSpace(name)
	if display == "" {
		display = filename
	}
	img := &domain.Image{
		ID:          domain.SampleID(uuid.New().String()),
		OwnerID:     owner,
		Name:        display,
		ImageRef:    ref,
		StoragePath: key,
		ContentType: mt,
		Size:        int64(len(data)),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, img); err != nil {
		if derr := s.Media.Delete(ctx, key); derr != nil {
			s.log().Warn(module, "sample blob left behind", map[string]interface{}{"key": key, "error": derr})
		}
		return nil, fmt.Errorf("save sample: %w", err)
	}
	s.log().Info(module, "sample added", map[string]interface{}{"owner": owner, "sample": string(img.ID), "key": key})
	s.notify(ctx, owner, "Sample added", fmt.Sprintf("%s was added to your sample library.", display))
	return img, nil
}

// Delete removes the sample entry. Scan records that used its image are untouched;
// the blob is purged only when enabled and no record still points at it.
func (s *Service) Delete(ctx context.Context, owner string, id domain.SampleID) error {
	img, err := s.Repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.log().Info(module, "sample deleted", map[string]interface{}{"owner": owner, "sample": string(id)})
	s.notify(ctx, owner, "Sample deleted", fmt.Sprintf("%s was removed from your sample library.", img.Name))

	if !s.PurgeBlobs || s.Records == nil {
		return nil
	}
	n, err := s.Records.CountByImageRef(ctx, owner, img.ImageRef)
	if err != nil {
		s.log().Warn(module, "skip blob purge", map[string]interface{}{"sample": string(id), "error": err})
		return nil
	}
	if n > 0 {
		return nil
	}
	if err := s.Media.Delete(ctx, img.StoragePath); err != nil && !errors.Is(err, media.ErrObjectNotFound) {
		s.log().Warn(module, "sample blob purge failed", map[string]interface{}{"key": img.StoragePath, "error": err})
	}
	return nil
}

// SampleKey is the owner-scoped blob key for a sample upload.
func SampleKey(owner string, stamp int64, filename string) string {
	return fmt.Sprintf("owners/%s/samples/%d_%s", owner, stamp, filename)
}

// SafeFilename strips path and unsafe characters and makes sure the name
// carries an image extension.
func SafeFilename(name, ext string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "sample"
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return base
	}
	return base + ext
}

func (s *Service) notify(ctx context.Context, owner, title, msg string) {
	if s.Notifier == nil {
		return
	}
	err := s.Notifier.Notify(ctx, notify.Notice{
		OwnerID: owner,
		Level:   notify.LevelSuccess,
		Title:   title,
		Message: msg,
		At:      s.now().UTC(),
	})
	if err != nil {
		s.log().Warn(module, "notice not delivered", map[string]interface{}{"owner": owner, "error": err})
	}
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
