package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neuroscan/internal/application/acquisition"
	"github.com/bryanwahyu/neuroscan/internal/domain/inference"
	"github.com/bryanwahyu/neuroscan/internal/domain/media"
	"github.com/bryanwahyu/neuroscan/internal/infra/inference/httpclient"
)

const preview = media.Ref("data:image/png;base64,AAAA")

type stubClient struct {
	resp      inference.Response
	err       error
	uploads   []inference.Upload
	sampleIDs []string
	owners    []string
}

func (c *stubClient) Analyze(_ context.Context, img inference.Upload, owner string) (inference.Response, error) {
	c.uploads = append(c.uploads, img)
	c.owners = append(c.owners, owner)
	return c.resp, c.err
}

func (c *stubClient) ScanSample(_ context.Context, owner, sampleID string) (inference.Response, error) {
	c.sampleIDs = append(c.sampleIDs, sampleID)
	c.owners = append(c.owners, owner)
	return c.resp, c.err
}

func upload() acquisition.Acquisition {
	return acquisition.Acquisition{
		Data:           []byte("png"),
		DisplaySource:  preview,
		MimeType:       "image/png",
		OriginFilename: "scan.png",
		Provenance:     acquisition.ProvenanceUpload,
	}
}

func TestAnalyzeRawUpload(t *testing.T) {
	c := &stubClient{resp: inference.Response{HasTumor: true, Confidence: 93.5, TumorType: "Pituitary"}}
	d := &Dispatcher{Client: c}

	res := d.Analyze(context.Background(), upload(), "alice")

	require.Len(t, c.uploads, 1)
	assert.Equal(t, "scan.png", c.uploads[0].Filename)
	assert.Equal(t, "image/png", c.uploads[0].MimeType)
	assert.Equal(t, []string{"alice"}, c.owners)
	assert.False(t, res.Error)
	assert.InDelta(t, 0.935, res.Confidence, 1e-9)
	assert.Equal(t, preview, res.DisplayRef)
}

func TestAnalyzeSampleByReference(t *testing.T) {
	c := &stubClient{resp: inference.Response{HasTumor: false, FromSample: true}}
	d := &Dispatcher{Client: c}

	acq := acquisition.Acquisition{
		DisplaySource: "https://cdn.example.com/s.png",
		Provenance:    acquisition.ProvenanceSample,
		SampleID:      "s-9",
	}
	res := d.Analyze(context.Background(), acq, "alice")

	assert.Empty(t, c.uploads)
	assert.Equal(t, []string{"s-9"}, c.sampleIDs)
	assert.True(t, res.Provenance.FromSample)
	assert.Equal(t, "s-9", res.Provenance.SampleID)
}

func TestAnalyzeFailureYieldsSentinel(t *testing.T) {
	c := &stubClient{err: fmt.Errorf("%w: timeout", inference.ErrUnavailable)}
	d := &Dispatcher{Client: c}

	res := d.Analyze(context.Background(), upload(), "")

	assert.True(t, res.Error)
	assert.False(t, res.HasTumor)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, preview, res.DisplayRef)
	assert.Equal(t, "No Tumor Detected", res.Headline())
	// one attempt, no retry
	assert.Len(t, c.uploads, 1)
}

func TestAnalyzeOverHTTP(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/api/analyze" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hasTumor":          true,
			"confidence":        0.77,
			"processedImageUrl": "https://cdn.example.com/p.jpg",
		})
	}))
	defer srv.Close()

	d := &Dispatcher{Client: httpclient.New(srv.URL, 0)}
	res := d.Analyze(context.Background(), upload(), "alice")

	assert.Equal(t, 1, calls)
	assert.Equal(t, "77%", res.ConfidenceLabel())
	assert.Equal(t, media.Ref("https://cdn.example.com/p.jpg"), res.DisplayRef)
	assert.Equal(t, preview, res.ImageRef)
}

func TestAnalyzeOverHTTPServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	d := &Dispatcher{Client: httpclient.New(srv.URL, 0)}
	res := d.Analyze(context.Background(), upload(), "alice")
	assert.True(t, res.Error)
}
