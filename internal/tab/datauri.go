package tab

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

// Blob is binary data with its MIME type, e.g. a decoded screenshot.
type Blob struct {
	MIMEType string
	Data     []byte
}

var ErrNotDataURI = errors.New("not a data URI")

// ParseDataURI decodes a data: URI. Both base64 and percent-encoded payloads are accepted.
func ParseDataURI(s string) (Blob, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return Blob{}, ErrNotDataURI
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Blob{}, fmt.Errorf("%w: missing ','", ErrNotDataURI)
	}
	meta := s[len("data:"):comma]
	payload := s[comma+1:]

	mimeType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		part = strings.TrimSpace(part)
		if i == 0 && strings.Contains(part, "/") {
			mimeType = strings.ToLower(part)
			continue
		}
		if strings.EqualFold(part, "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return Blob{}, fmt.Errorf("decode base64 payload: %w", err)
			}
		}
		return Blob{MIMEType: mimeType, Data: b}, nil
	}
	raw, err := url.PathUnescape(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("decode percent-encoded payload: %w", err)
	}
	return Blob{MIMEType: mimeType, Data: []byte(raw)}, nil
}

// DataURI encodes the blob as a base64 data: URI.
func (b Blob) DataURI() string {
	mt := b.MIMEType
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b.Data)
}

func (b Blob) Len() int { return len(b.Data) }

// Extension returns a file extension (without dot) for the blob's MIME type.
func (b Blob) Extension() string {
	switch b.MIMEType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	}
	if exts, err := mime.ExtensionsByType(b.MIMEType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}

// Filename is the attachment name used for a screenshot blob.
func (b Blob) Filename(base string) string {
	if base == "" {
		base = "screenshot"
	}
	return base + "." + b.Extension()
}
