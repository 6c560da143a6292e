package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-pos/internal/resilience"
)

// ErrSourceUnavailable marks a failed fetch from the configuration API.
var ErrSourceUnavailable = errors.New("policy: source unavailable")

const maxDocumentBytes = 1 << 20

// Source supplies the authoritative policy document.
type Source interface {
	Fetch(ctx context.Context) (Document, error)
}

// HTTPSource reads policies from the configuration API.
type HTTPSource struct {
	BaseURL string
	Token   string
	Client  resilience.HTTPClient
}

// Fetch implements Source. The API may answer with a bare document or the
// {"data": {...}} envelope.
func (s HTTPSource) Fetch(ctx context.Context) (Document, error) {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		return Document{}, fmt.Errorf("%w: base url not configured", ErrSourceUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/policies", nil)
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return Document{}, fmt.Errorf("%w: read body: %v", ErrSourceUnavailable, err)
	}
	return decodeResponse(body)
}

func decodeResponse(body []byte) (Document, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		body = envelope.Data
	}
	doc, err := Decode(body)
	if err != nil {
		return Document{}, fmt.Errorf("%w: decode: %v", ErrSourceUnavailable, err)
	}
	return doc, nil
}

// StaticSource serves a fixed document. It backs the CLI and tests.
type StaticSource struct {
	Document Document
	Err      error
}

// Fetch implements Source.
func (s StaticSource) Fetch(context.Context) (Document, error) {
	if s.Err != nil {
		return Document{}, s.Err
	}
	return s.Document, nil
}
