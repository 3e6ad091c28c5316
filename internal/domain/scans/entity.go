package scans

import (
	"fmt"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// RecordID identifies a persisted scan record.
type RecordID string

// Provenance tells whether a scan came from the owner's sample library.
type Provenance struct {
	FromSample bool   `json:"fromSample"`
	SampleID   string `json:"sampleId,omitempty"`
}

// Findings are the bounded result fields kept on a record.
type Findings struct {
	HasTumor      bool    `json:"hasTumor"`
	Confidence    float64 `json:"confidence"`
	TumorType     string  `json:"tumorType"`
	TumorSize     string  `json:"tumorSize"`
	TumorLocation string  `json:"tumorLocation"`
}

// Result is the canonical, trusted outcome of one analysis.
// When Error is set HasTumor is false and Confidence is 0.
type Result struct {
	Findings
	ImageRef          media.Ref  `json:"imageRef"`
	ProcessedImageRef media.Ref  `json:"processedImageRef,omitempty"`
	DisplayRef        media.Ref  `json:"displayRef"`
	Provenance        Provenance `json:"provenance"`
	Error             bool       `json:"error"`
}

// Headline is the label the renderer shows for the result.
func (r Result) Headline() string {
	if r.HasTumor {
		return "Tumor Detected"
	}
	return "No Tumor Detected"
}

// ConfidenceLabel is empty whenever no tumor was found.
func (r Result) ConfidenceLabel() string {
	if !r.HasTumor {
		return ""
	}
	return fmt.Sprintf("%.0f%%", r.Confidence*100)
}

// Record is a persisted result. Never mutated after creation.
type Record struct {
	ID                RecordID   `json:"id"`
	OwnerID           string     `json:"ownerId"`
	Name              string     `json:"name"`
	Timestamp         time.Time  `json:"timestamp"`
	Result            Findings   `json:"result"`
	ImageRef          media.Ref  `json:"imageRef"`
	ProcessedImageRef media.Ref  `json:"processedImageRef,omitempty"`
	Provenance        Provenance `json:"provenance"`
}

// Summary aggregates an owner's records over a time window.
type Summary struct {
	Total    int `json:"total_scans"`
	Positive int `json:"tumor_detected"`
	Negative int `json:"no_tumor"`
}
