package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
	"github.com/bryanwahyu/neuroscan/internal/infra/db/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func record(id, owner string, at time.Time, tumor bool) *scans.Record {
	rec := &scans.Record{
		ID:        scans.RecordID(id),
		OwnerID:   owner,
		Name:      "Brain Scan " + id,
		Timestamp: at,
		Result:    scans.Findings{HasTumor: tumor},
		ImageRef:  media.Ref("https://store.example/owners/" + owner + "/images/original/" + id + ".jpg"),
	}
	if tumor {
		rec.Result.Confidence = 0.9
		rec.Result.TumorType = "Glioma"
		rec.Result.TumorSize = "2.1 cm"
		rec.Result.TumorLocation = "Left temporal lobe"
		rec.ProcessedImageRef = media.Ref("https://store.example/owners/" + owner + "/images/processed/" + id + ".jpg")
	}
	return rec
}

func TestRecordRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openDB(t))

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	in := record("r1", "owner-1", at, true)
	in.Provenance = scans.Provenance{FromSample: true, SampleID: "s1"}
	require.NoError(t, repo.Create(ctx, in))

	got, err := repo.Get(ctx, "owner-1", "r1")
	require.NoError(t, err)
	assert.Equal(t, in.Result, got.Result)
	assert.Equal(t, in.ImageRef, got.ImageRef)
	assert.Equal(t, in.ProcessedImageRef, got.ProcessedImageRef)
	assert.Equal(t, in.Provenance, got.Provenance)
	assert.True(t, at.Equal(got.Timestamp))

	_, err = repo.Get(ctx, "owner-2", "r1")
	assert.ErrorIs(t, err, scans.ErrNotFound)
}

func TestRecordRepositoryLatestNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, record(id, "owner-1", base.Add(time.Duration(i)*time.Minute), false)))
	}
	require.NoError(t, repo.Create(ctx, record("x", "owner-2", base, false)))

	out, err := repo.Latest(ctx, "owner-1", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, scans.RecordID("c"), out[0].ID)
	assert.Equal(t, scans.RecordID("b"), out[1].ID)
}

func TestRecordRepositorySummaryAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openDB(t))

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, record("p1", "owner-1", now.Add(-time.Hour), true)))
	require.NoError(t, repo.Create(ctx, record("n1", "owner-1", now.Add(-2*time.Hour), false)))
	require.NoError(t, repo.Create(ctx, record("old", "owner-1", now.AddDate(0, 0, -40), true)))

	sum, err := repo.Summary(ctx, "owner-1", 30)
	require.NoError(t, err)
	assert.Equal(t, scans.Summary{Total: 2, Positive: 1, Negative: 1}, sum)

	require.NoError(t, repo.Delete(ctx, "owner-1", "p1"))
	assert.ErrorIs(t, repo.Delete(ctx, "owner-1", "p1"), scans.ErrNotFound)
}

func TestRecordRepositoryCountByImageRef(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openDB(t))

	rec := record("r1", "owner-1", time.Now().UTC(), false)
	rec.ImageRef = "https://store.example/owners/owner-1/samples/1_a.png"
	require.NoError(t, repo.Create(ctx, rec))

	n, err := repo.CountByImageRef(ctx, "owner-1", rec.ImageRef)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.CountByImageRef(ctx, "owner-1", "https://store.example/other.png")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSampleRepositoryListAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSampleRepository(openDB(t))

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, repo.Create(ctx, &samples.Image{
			ID:          samples.SampleID(id),
			OwnerID:     "owner-1",
			Name:        id + ".png",
			ImageRef:    media.Ref("https://store.example/" + id),
			StoragePath: "owners/owner-1/samples/" + id,
			ContentType: "image/png",
			Size:        int64(10 + i),
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := repo.List(ctx, "owner-1", 20)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, samples.SampleID("s3"), list[0].ID)
	assert.Equal(t, int64(12), list[0].Size)

	require.NoError(t, repo.Delete(ctx, "owner-1", "s2"))
	_, err = repo.Get(ctx, "owner-1", "s2")
	assert.ErrorIs(t, err, samples.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "owner-1", "s2"), samples.ErrNotFound)

	list, err = repo.List(ctx, "owner-2", 20)
	require.NoError(t, err)
	assert.Empty(t, list)
}
