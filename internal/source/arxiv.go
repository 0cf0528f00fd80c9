package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

// ArXiv queries the arXiv Atom export API
type ArXiv struct {
	baseURL string
	http    httpGetter
}

// NewArXiv creates an arXiv client
func NewArXiv(opts Options) *ArXiv {
	base := opts.BaseURL
	if base == "" {
		base = "https://export.arxiv.org/api/query"
	}
	return &ArXiv{
		baseURL: base,
		http:    newHTTPGetter(opts.HTTPClient, opts.UserAgent, opts.MaxBytes),
	}
}

func (a *ArXiv) Source() model.SourceDatabase { return model.SourceArXiv }

func (a *ArXiv) Endpoint() string { return a.baseURL }

// Fetch returns the raw Atom feed for a query
func (a *ArXiv) Fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("search_query", arxivSearchQuery(query))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(clampLimit(limit, 20)))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")
	return a.http.get(ctx, a.baseURL+"?"+params.Encode(), "application/atom+xml")
}

// arxivSearchQuery keeps quoted phrases as phrase searches and otherwise
// requires every word to appear somewhere in the record.
func arxivSearchQuery(query string) string {
	q := strings.TrimSpace(query)
	if len(q) > 1 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		return "all:" + q
	}
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = "all:" + w
	}
	return strings.Join(words, " AND ")
}

type arxivFeed struct {
	XMLName xml.Name     `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Summary   string `xml:"http://www.w3.org/2005/Atom summary"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Title string `xml:"title,attr"`
	} `xml:"http://www.w3.org/2005/Atom link"`
	DOI        string `xml:"http://arxiv.org/schemas/atom doi"`
	JournalRef string `xml:"http://arxiv.org/schemas/atom journal_ref"`
	Comment    string `xml:"http://arxiv.org/schemas/atom comment"`
}

// Decode parses an arXiv Atom feed
func (a *ArXiv) Decode(payload []byte, query string) ([]RawRecord, error) {
	var feed arxivFeed
	if err := xml.Unmarshal(payload, &feed); err != nil {
		return nil, fmt.Errorf("%w: arxiv: %v", ErrMalformedPayload, err)
	}

	records := make([]RawRecord, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		// The API reports query errors as a single entry titled "Error"
		if strings.TrimSpace(entry.Title) == "Error" && strings.Contains(entry.ID, "api/errors") {
			return nil, fmt.Errorf("%w: arxiv: %s", ErrMalformedPayload, strings.TrimSpace(entry.Summary))
		}

		rec := RawRecord{
			Source:     model.SourceArXiv,
			Title:      collapseSpace(entry.Title),
			Venue:      "arXiv",
			Date:       strings.TrimSpace(entry.Published),
			DOI:        strings.TrimSpace(entry.DOI),
			URL:        strings.TrimSpace(entry.ID),
			Abstract:   collapseSpace(entry.Summary),
			JournalRef: collapseSpace(entry.JournalRef),
			Types:      []string{"preprint"},
			Blob:       entry.ID + " " + entry.DOI + " " + entry.Comment,
			Query:      query,
		}
		for _, author := range entry.Authors {
			if name := collapseSpace(author.Name); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		}
		for _, link := range entry.Links {
			if link.Title == "doi" && rec.DOI == "" {
				rec.Blob += " " + link.Href
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
