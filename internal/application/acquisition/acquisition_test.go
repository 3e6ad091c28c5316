package acquisition

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/domain/samples"
	"github.com/bryanwahyu/neuroscan/internal/infra/storage"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{R: 200, A: 255})
	return img
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func tiffData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, testImage(), nil))
	return buf.Bytes()
}

func reason(t *testing.T, err error) Reason {
	t.Helper()
	var ae *Error
	require.ErrorAs(t, err, &ae)
	return ae.Reason
}

func TestAcquirePNGDisplaysDirectly(t *testing.T) {
	a := &Acquirer{}
	acq, err := a.Acquire(context.Background(), LocalFile{Filename: "scan", MimeType: "image/png", Data: pngData(t)})
	require.NoError(t, err)

	assert.Equal(t, "image/png", acq.MimeType)
	assert.Equal(t, "scan.png", acq.OriginFilename)
	assert.Equal(t, ProvenanceUpload, acq.Provenance)
	assert.Empty(t, acq.Warning)
	assert.True(t, strings.HasPrefix(string(acq.DisplaySource), "data:image/png;base64,"))
	assert.False(t, acq.ByReference())
}

func TestAcquireTIFFIsReencodedForPreview(t *testing.T) {
	a := &Acquirer{}
	data := tiffData(t)
	acq, err := a.Acquire(context.Background(), LocalFile{Filename: "slice.tif", Data: data})
	require.NoError(t, err)

	assert.Equal(t, "image/tiff", acq.MimeType)
	assert.Empty(t, acq.Warning)
	mt, _, err := acq.DisplaySource.Decode()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
	// analysis still gets the original bytes
	assert.Equal(t, data, acq.Data)
}

func TestAcquireUndecodableImageWarns(t *testing.T) {
	a := &Acquirer{}
	acq, err := a.Acquire(context.Background(), LocalFile{
		Filename: "broken.png",
		MimeType: "image/png",
		Data:     []byte("definitely not png bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, WarnMayNotDisplay, acq.Warning)
	assert.Equal(t, media.KindInline, acq.DisplaySource.Kind())
}

func TestAcquireRejectsNonImages(t *testing.T) {
	a := &Acquirer{}

	_, err := a.Acquire(context.Background(), LocalFile{Filename: "notes.txt", Data: []byte("hello")})
	assert.Equal(t, ReasonInvalidType, reason(t, err))

	_, err = a.Acquire(context.Background(), LocalFile{Filename: "doc.pdf", MimeType: "application/pdf", Data: pngData(t)})
	assert.Equal(t, ReasonInvalidType, reason(t, err))

	_, err = a.Acquire(context.Background(), LocalFile{Filename: "empty.png", MimeType: "image/png"})
	assert.Equal(t, ReasonUnreadable, reason(t, err))
}

type sampleLookup map[samples.SampleID]*samples.Image

func (l sampleLookup) Get(_ context.Context, owner string, id samples.SampleID) (*samples.Image, error) {
	img, ok := l[id]
	if !ok || img.OwnerID != owner {
		return nil, samples.ErrNotFound
	}
	return img, nil
}

func sampleFixture(t *testing.T) (sampleLookup, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemory("")
	key := "owners/alice/samples/1_glioma.png"
	ref, err := store.Put(context.Background(), key, pngData(t), "image/png")
	require.NoError(t, err)
	return sampleLookup{
		"s-1": {ID: "s-1", OwnerID: "alice", Name: "Glioma", ImageRef: ref, StoragePath: key, ContentType: "image/png"},
		"s-2": {ID: "s-2", OwnerID: "alice", Name: "Lost", StoragePath: "owners/alice/samples/missing.png", ContentType: "image/png"},
	}, store
}

func TestAcquireSampleByReference(t *testing.T) {
	lookup, store := sampleFixture(t)
	a := &Acquirer{Samples: lookup, Media: store, ScanByReference: true}

	acq, err := a.Acquire(context.Background(), SampleRef{OwnerID: "alice", SampleID: "s-1"})
	require.NoError(t, err)
	assert.True(t, acq.ByReference())
	assert.Nil(t, acq.Data)
	assert.Equal(t, lookup["s-1"].ImageRef, acq.DisplaySource)
	assert.Equal(t, "s-1", acq.ScanProvenance().SampleID)
}

func TestAcquireSampleFetchesBytes(t *testing.T) {
	lookup, store := sampleFixture(t)
	a := &Acquirer{Samples: lookup, Media: store}

	acq, err := a.Acquire(context.Background(), SampleRef{OwnerID: "alice", SampleID: "s-1"})
	require.NoError(t, err)
	assert.False(t, acq.ByReference())
	assert.NotEmpty(t, acq.Data)
	assert.Equal(t, ProvenanceSample, acq.Provenance)
	assert.True(t, acq.ScanProvenance().FromSample)
}

func TestAcquireSampleErrors(t *testing.T) {
	lookup, store := sampleFixture(t)
	a := &Acquirer{Samples: lookup, Media: store}

	_, err := a.Acquire(context.Background(), SampleRef{OwnerID: "bob", SampleID: "s-1"})
	assert.Equal(t, ReasonSampleNotFound, reason(t, err))
	assert.True(t, errors.Is(err, samples.ErrNotFound))

	_, err = a.Acquire(context.Background(), SampleRef{OwnerID: "", SampleID: "s-1"})
	assert.Equal(t, ReasonSampleNotFound, reason(t, err))

	_, err = a.Acquire(context.Background(), SampleRef{OwnerID: "alice", SampleID: "s-2"})
	assert.Equal(t, ReasonFetchFailed, reason(t, err))
}

func TestEnsureExtension(t *testing.T) {
	assert.Equal(t, "scan.jpg", EnsureExtension("scan", "image/jpeg"))
	assert.Equal(t, "scan.jpeg", EnsureExtension("scan.jpeg", "image/jpeg"))
	assert.Equal(t, "scan.png", EnsureExtension("scan.png", "image/png"))
}

func TestAcquireGenericDeclaredTypeIsSniffed(t *testing.T) {
	a := &Acquirer{}
	acq, err := a.Acquire(context.Background(), LocalFile{Filename: "upload", MimeType: "application/octet-stream", Data: pngData(t)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", acq.MimeType)
}
