// Package source implements clients for the literature databases. Clients
// separate fetching (network, cacheable bytes) from decoding so a cached
// payload goes through exactly the same decode path as a live one.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Surjit27/Clairvox/internal/model"
)

var (
	// ErrUnexpectedStatus is returned for non-2xx responses
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrMalformedPayload is returned when a response cannot be decoded
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrPayloadTooLarge is returned when a response exceeds the size cap
	ErrPayloadTooLarge = errors.New("payload too large")
)

// RawRecord is a database record before normalization. Fields hold the
// values exactly as the database reported them.
type RawRecord struct {
	Source     model.SourceDatabase
	Title      string
	Authors    []string
	Venue      string
	Date       string   // As reported: YYYY, YYYY-MM, YYYY-MM-DD or RFC3339
	DOI        string   // Structured DOI field, unvalidated
	URL        string
	Abstract   string   // May contain JATS or HTML markup
	Types      []string // Publication or work types
	JournalRef string   // Journal reference for preprints that were later published
	Origin     string   // Database-specific collection, e.g. Europe PMC "PPR"
	Blob       string   // Raw record text, scanned for a DOI when the field is missing
	Query      string   // Query that produced the record
}

// Client queries one literature database
type Client interface {
	Source() model.SourceDatabase
	Endpoint() string
	Fetch(ctx context.Context, query string, limit int) ([]byte, error)
	Decode(payload []byte, query string) ([]RawRecord, error)
}

// httpGetter performs size-capped GET requests
type httpGetter struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func newHTTPGetter(client *http.Client, userAgent string, maxBytes int64) httpGetter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return httpGetter{client: client, userAgent: userAgent, maxBytes: maxBytes}
}

func (g httpGetter) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > g.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrPayloadTooLarge, g.maxBytes)
	}
	return body, nil
}

// Options configures a database client
type Options struct {
	BaseURL    string
	UserAgent  string
	Mailto     string // CrossRef only
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewClients builds a client for every enabled database
func NewClients(cfg model.Config, client *http.Client) ([]Client, error) {
	var clients []Client
	for _, db := range cfg.Sources.Enabled() {
		opts := Options{
			BaseURL:    cfg.Sources.For(db).BaseURL,
			UserAgent:  cfg.Search.UserAgent,
			Mailto:     cfg.Search.Mailto,
			HTTPClient: client,
			MaxBytes:   cfg.Search.MaxBodyBytes,
		}
		switch db {
		case model.SourceCrossRef:
			clients = append(clients, NewCrossRef(opts))
		case model.SourceEuropePMC:
			clients = append(clients, NewEuropePMC(opts))
		case model.SourceArXiv:
			clients = append(clients, NewArXiv(opts))
		default:
			return nil, fmt.Errorf("no client for source %q", db)
		}
	}
	return clients, nil
}

// clampLimit keeps result counts within what every database accepts
func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}
