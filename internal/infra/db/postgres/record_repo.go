package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	domain "github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

type RecordRepository struct{ db *sql.DB }

func NewRecordRepository(db *sql.DB) *RecordRepository { return &RecordRepository{db: db} }

const recordColumns = `id, owner_id, name, scanned_at,
       has_tumor, confidence, tumor_type, tumor_size, tumor_location,
       image_ref, processed_image_ref, from_sample, sample_id`

// Create inserts one record. Records are never updated.
func (r *RecordRepository) Create(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO scan_records
(id, owner_id, name, scanned_at,
 has_tumor, confidence, tumor_type, tumor_size, tumor_location,
 image_ref, processed_image_ref, from_sample, sample_id)
VALUES ($1,$2,$3,$4,
        $5,$6,$7,$8,$9,
        $10,$11,$12,$13);`

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(rec.ID), rec.OwnerID, rec.Name, ts,
		rec.Result.HasTumor, rec.Result.Confidence, rec.Result.TumorType, rec.Result.TumorSize, rec.Result.TumorLocation,
		string(rec.ImageRef), string(rec.ProcessedImageRef), rec.Provenance.FromSample, rec.Provenance.SampleID,
	)
	return err
}

// Get by ID + Owner
func (r *RecordRepository) Get(ctx context.Context, owner string, id domain.RecordID) (*domain.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM scan_records WHERE owner_id=$1 AND id=$2 LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, owner, string(id)))
	if err != nil {
		return nil, mapNoRows(err, domain.ErrNotFound)
	}
	return rec, nil
}

func (r *RecordRepository) Latest(ctx context.Context, owner string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + recordColumns + ` FROM scan_records WHERE owner_id=$1 ORDER BY scanned_at DESC, id DESC LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *RecordRepository) Delete(ctx context.Context, owner string, id domain.RecordID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scan_records WHERE owner_id=$1 AND id=$2;`, owner, string(id))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) Summary(ctx context.Context, owner string, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}
	const q = `
SELECT COUNT(*),
       COALESCE(SUM(CASE WHEN has_tumor THEN 1 ELSE 0 END),0)
FROM scan_records
WHERE owner_id=$1 AND scanned_at >= $2;`

	cut := time.Now().UTC().AddDate(0, 0, -sinceDays)
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, owner, cut).Scan(&s.Total, &s.Positive); err != nil {
		return domain.Summary{}, err
	}
	s.Negative = s.Total - s.Positive
	return s, nil
}

func (r *RecordRepository) CountByImageRef(ctx context.Context, owner string, ref media.Ref) (int, error) {
	const q = `SELECT COUNT(*) FROM scan_records WHERE owner_id=$1 AND (image_ref=$2 OR processed_image_ref=$2);`
	var n int
	err := r.db.QueryRowContext(ctx, q, owner, string(ref)).Scan(&n)
	return n, err
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		id        string
		image     string
		processed string
	)
	if err := row.Scan(
		&id, &rec.OwnerID, &rec.Name, &rec.Timestamp,
		&rec.Result.HasTumor, &rec.Result.Confidence, &rec.Result.TumorType, &rec.Result.TumorSize, &rec.Result.TumorLocation,
		&image, &processed, &rec.Provenance.FromSample, &rec.Provenance.SampleID,
	); err != nil {
		return nil, err
	}
	rec.ID = domain.RecordID(id)
	rec.ImageRef = media.Ref(image)
	rec.ProcessedImageRef = media.Ref(processed)
	rec.Timestamp = rec.Timestamp.UTC()
	return &rec, nil
}
