package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/neuroscan/internal/domain/ai"
	"github.com/bryanwahyu/neuroscan/internal/domain/scans"
)

func record() *scans.Record {
	return &scans.Record{
		ID:        "r-1",
		OwnerID:   "alice",
		Name:      "Follow-up",
		Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Result:    scans.Findings{HasTumor: true, Confidence: 0.82, TumorType: "Glioma"},
	}
}

func TestExplainSendsPromptAndReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		msgs, _ := req["messages"].([]any)
		assert.Len(t, msgs, 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "", srv.URL)
	out, err := c.Explain(context.Background(), record())
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, out)
}

func TestExplainQuotaExceeded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gpt-4o", srv.URL)
	_, err := c.Explain(context.Background(), record())
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}

func TestExplainNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "", srv.URL)
	_, err := c.Explain(context.Background(), record())
	assert.Error(t, err)
}
