// Package httpclient talks to the tumor inference service over multipart HTTP.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/bryanwahyu/neuroscan/internal/domain/inference"
)

const (
	analyzePath    = "/api/analyze"
	scanSamplePath = "/api/scan-sample"
	// remote error bodies are read up to this many bytes
	maxErrorBody = 4 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for baseURL. A zero timeout leaves calls unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Analyze(ctx context.Context, up inference.Upload, ownerID string) (inference.Response, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, up.Filename))
	mt := up.MimeType
	if mt == "" {
		mt = "application/octet-stream"
	}
	h.Set("Content-Type", mt)
	part, err := w.CreatePart(h)
	if err != nil {
		return inference.Response{}, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return inference.Response{}, err
	}
	if ownerID != "" {
		if err := w.WriteField("userId", ownerID); err != nil {
			return inference.Response{}, err
		}
	}
	if err := w.Close(); err != nil {
		return inference.Response{}, err
	}
	return c.post(ctx, analyzePath, w.FormDataContentType(), &body)
}

func (c *Client) ScanSample(ctx context.Context, ownerID, sampleID string) (inference.Response, error) {
	if ownerID == "" || sampleID == "" {
		return inference.Response{}, errors.New("owner id and sample id required")
	}
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("userId", ownerID); err != nil {
		return inference.Response{}, err
	}
	if err := w.WriteField("sampleId", sampleID); err != nil {
		return inference.Response{}, err
	}
	if err := w.Close(); err != nil {
		return inference.Response{}, err
	}
	return c.post(ctx, scanSamplePath, w.FormDataContentType(), &body)
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) (inference.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return inference.Response{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return inference.Response{}, fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return inference.Response{}, fmt.Errorf("%w: %s %s: %d %s", inference.ErrUnavailable, http.MethodPost, path, resp.StatusCode, msg)
	}

	var out inference.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return inference.Response{}, fmt.Errorf("%w: decode %s: %v", inference.ErrUnavailable, path, err)
	}
	return out, nil
}
