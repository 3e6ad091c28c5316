package prompt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

func TestUserPromptOmitsTumorFieldsWhenNegative(t *testing.T) {
	rec := &scans.Record{
		Name:      "Baseline",
		Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Result:    scans.Findings{HasTumor: false, TumorType: "stale"},
	}
	p := GetUserPrompt(rec)
	assert.Contains(t, p, "no tumor detected")
	assert.Contains(t, p, "2024-01-02")
	assert.NotContains(t, p, "stale")
}

func TestTemplateProducesSchemaJSON(t *testing.T) {
	rec := &scans.Record{
		Name:   "Follow-up",
		Result: scans.Findings{HasTumor: true, Confidence: 0.82, TumorType: "Glioma", TumorLocation: "left temporal"},
	}
	out, err := Template{}.Explain(context.Background(), rec)
	require.NoError(t, err)

	var n Narrative
	require.NoError(t, json.Unmarshal([]byte(out), &n))
	assert.Contains(t, n.Summary, "82%")
	assert.Contains(t, n.Details, "Glioma")
	assert.NotEmpty(t, n.NextSteps)
	assert.NotEmpty(t, n.Disclaimer)
}
