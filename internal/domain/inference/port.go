package inference

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport and remote failures of the inference endpoint.
var ErrUnavailable = errors.New("inference unavailable")

// Response is the untrusted wire payload of /api/analyze and /api/scan-sample.
// Confidence may arrive as a fraction or as a percentage.
type Response struct {
	HasTumor           bool    `json:"hasTumor"`
	Confidence         float64 `json:"confidence"`
	TumorType          string  `json:"tumorType,omitempty"`
	TumorSize          string  `json:"tumorSize,omitempty"`
	TumorLocation      string  `json:"tumorLocation,omitempty"`
	ImageID            string  `json:"imageId,omitempty"`
	OriginalImageURL   string  `json:"originalImageUrl,omitempty"`
	ProcessedImageURL  string  `json:"processedImageUrl,omitempty"`
	ProcessedImageData string  `json:"processedImageData,omitempty"`
	FromSample         bool    `json:"fromSample,omitempty"`
	SampleID           string  `json:"sampleId,omitempty"`
}

// Upload is the raw-analyze request body.
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

// Client talks to the remote inference service. One attempt per call, no retry.
type Client interface {
	Analyze(ctx context.Context, img Upload, ownerID string) (Response, error)
	ScanSample(ctx context.Context, ownerID, sampleID string) (Response, error)
}
