package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	domain "github.com/bryanwahyu/neuroscan/internal/domain/samples"
)

type SampleRepository struct{ db *sql.DB }

func NewSampleRepository(db *sql.DB) *SampleRepository { return &SampleRepository{db: db} }

const sampleColumns = `id, owner_id, name, image_ref, storage_path, content_type, size_bytes, created_at`

func (r *SampleRepository) Create(ctx context.Context, img *domain.Image) error {
	const q = `
INSERT INTO sample_images
(id, owner_id, name, image_ref, storage_path, content_type, size_bytes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	created := img.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(img.ID), img.OwnerID, img.Name, string(img.ImageRef), img.StoragePath, img.ContentType, img.Size, created,
	)
	return err
}

func (r *SampleRepository) Get(ctx context.Context, owner string, id domain.SampleID) (*domain.Image, error) {
	q := `SELECT ` + sampleColumns + ` FROM sample_images WHERE owner_id=$1 AND id=$2 LIMIT 1;`
	img, err := scanSample(r.db.QueryRowContext(ctx, q, owner, string(id)))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrNotFound)
	}
	return img, nil
}

func (r *SampleRepository) List(ctx context.Context, owner string, limit int) ([]*domain.Image, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + sampleColumns + ` FROM sample_images WHERE owner_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Image
	for rows.Next() {
		img, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (r *SampleRepository) Delete(ctx context.Context, owner string, id domain.SampleID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sample_images WHERE owner_id=$1 AND id=$2;`, owner, string(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSample(row rowScanner) (*domain.Image, error) {
	var (
		img domain.Image
		id  string
		ref string
	)
	if err := row.Scan(&id, &img.OwnerID, &img.Name, &ref, &img.StoragePath, &img.ContentType, &img.Size, &img.CreatedAt); err != nil {
		return nil, err
	}
	img.ID = domain.SampleID(id)
	img.ImageRef = media.Ref(ref)
	img.CreatedAt = img.CreatedAt.UTC()
	return &img, nil
}
