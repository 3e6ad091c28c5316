package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies where the bytes behind a Ref live.
type Kind string

const (
	KindInline      Kind = "inline"      // data: URI carried in memory
	KindLocal       Kind = "local"       // session-local handle, never valid outside the session
	KindDurable     Kind = "durable"     // storage-backed URL
	KindPlaceholder Kind = "placeholder" // fixed stand-in image
)

// Placeholder is shown when no real image reference is available.
const Placeholder Ref = "static/img/scan-placeholder.png"

// Ref is an image reference: inline data, a local handle, a durable URL or the placeholder.
type Ref string

var ErrNotInline = errors.New("media: reference is not an inline data uri")

// Kind reports the classification of r.
func (r Ref) Kind() Kind {
	s := string(r)
	switch {
	case r == Placeholder:
		return KindPlaceholder
	case strings.HasPrefix(s, "data:"):
		return KindInline
	case strings.HasPrefix(s, "blob:"), strings.HasPrefix(s, "local:"), strings.HasPrefix(s, "file:"):
		return KindLocal
	default:
		return KindDurable
	}
}

func (r Ref) IsDurable() bool { return r != "" && r.Kind() == KindDurable }

func (r Ref) String() string { return string(r) }

// DataURI encodes raw bytes as a base64 data URI.
func DataURI(mimeType string, data []byte) Ref {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return Ref("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// Decode extracts the mime type and bytes from an inline Ref.
func (r Ref) Decode() (string, []byte, error) {
	if r.Kind() != KindInline {
		return "", nil, ErrNotInline
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(string(r), "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("media: malformed data uri")
	}
	mimeType := header
	isBase64 := false
	if i := strings.Index(header, ";"); i >= 0 {
		mimeType = header[:i]
		isBase64 = strings.Contains(header[i:], ";base64")
	}
	if !isBase64 {
		return mimeType, []byte(payload), nil
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("media: decode data uri: %w", err)
	}
	return mimeType, b, nil
}
