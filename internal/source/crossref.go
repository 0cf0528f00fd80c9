package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

// CrossRef queries the CrossRef works API
type CrossRef struct {
	baseURL string
	mailto  string
	http    httpGetter
}

// NewCrossRef creates a CrossRef client
func NewCrossRef(opts Options) *CrossRef {
	base := opts.BaseURL
	if base == "" {
		base = "https://api.crossref.org/works"
	}
	return &CrossRef{
		baseURL: base,
		mailto:  opts.Mailto,
		http:    newHTTPGetter(opts.HTTPClient, opts.UserAgent, opts.MaxBytes),
	}
}

func (c *CrossRef) Source() model.SourceDatabase { return model.SourceCrossRef }

func (c *CrossRef) Endpoint() string { return c.baseURL }

// Fetch returns the raw JSON response for a query
func (c *CrossRef) Fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("rows", strconv.Itoa(clampLimit(limit, 20)))
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	return c.http.get(ctx, c.baseURL+"?"+params.Encode(), "application/json")
}

type crossrefResponse struct {
	Status  string `json:"status"`
	Message struct {
		Items []json.RawMessage `json:"items"`
	} `json:"message"`
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefItem struct {
	Title          []string `json:"title"`
	Author         []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
		Name   string `json:"name"`
	} `json:"author"`
	ContainerTitle  []string      `json:"container-title"`
	PublishedPrint  *crossrefDate `json:"published-print"`
	PublishedOnline *crossrefDate `json:"published-online"`
	Issued          *crossrefDate `json:"issued"`
	DOI             string        `json:"DOI"`
	URL             string        `json:"URL"`
	Abstract        string        `json:"abstract"`
	Type            string        `json:"type"`
	Subtype         string        `json:"subtype"`
}

// Decode parses a CrossRef works response
func (c *CrossRef) Decode(payload []byte, query string) ([]RawRecord, error) {
	var resp crossrefResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: crossref: %v", ErrMalformedPayload, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("%w: crossref status %q", ErrMalformedPayload, resp.Status)
	}

	records := make([]RawRecord, 0, len(resp.Message.Items))
	for _, raw := range resp.Message.Items {
		var item crossrefItem
		if err := json.Unmarshal(raw, &item); err != nil {
			// Skip the single bad item; the rest of the page is usable
			continue
		}

		rec := RawRecord{
			Source:   model.SourceCrossRef,
			Title:    firstNonEmpty(item.Title),
			Venue:    firstNonEmpty(item.ContainerTitle),
			Date:     crossrefDateString(item.PublishedPrint, item.PublishedOnline, item.Issued),
			DOI:      item.DOI,
			URL:      item.URL,
			Abstract: item.Abstract,
			Blob:     string(raw),
			Query:    query,
		}
		for _, a := range item.Author {
			name := strings.TrimSpace(a.Given + " " + a.Family)
			if name == "" {
				name = strings.TrimSpace(a.Name)
			}
			if name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		if item.Type != "" {
			rec.Types = append(rec.Types, item.Type)
		}
		if item.Subtype != "" {
			rec.Types = append(rec.Types, item.Subtype)
		}
		records = append(records, rec)
	}
	return records, nil
}

// crossrefDateString formats the first usable date as YYYY[-MM[-DD]]
func crossrefDateString(dates ...*crossrefDate) string {
	for _, d := range dates {
		if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == 0 {
			continue
		}
		parts := d.DateParts[0]
		switch {
		case len(parts) >= 3 && parts[1] > 0 && parts[2] > 0:
			return fmt.Sprintf("%04d-%02d-%02d", parts[0], parts[1], parts[2])
		case len(parts) >= 2 && parts[1] > 0:
			return fmt.Sprintf("%04d-%02d", parts[0], parts[1])
		default:
			return fmt.Sprintf("%04d", parts[0])
		}
	}
	return ""
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
