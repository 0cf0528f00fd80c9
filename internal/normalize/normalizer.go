// Package normalize converts raw database records into canonical evidence
// candidates. Missing fields stay empty; nothing is guessed.
package normalize

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/source"
)

// ErrMalformedRecord is returned for records with neither a title nor an identifier
var ErrMalformedRecord = errors.New("malformed record: no title or identifier")

// Normalizer converts raw records into evidence candidates
type Normalizer struct {
	logger *zap.Logger
}

// New creates a normalizer
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize converts a single raw record
func (n *Normalizer) Normalize(raw source.RawRecord) (model.EvidenceCandidate, error) {
	title := strings.TrimSuffix(StripMarkup(raw.Title), ".")
	doi := ResolveDOI(raw.DOI, raw.Blob, raw.URL)
	link := strings.TrimSpace(raw.URL)

	if title == "" && doi == "" && link == "" {
		return model.EvidenceCandidate{}, ErrMalformedRecord
	}
	if link == "" && doi != "" {
		link = "https://doi.org/" + doi
	}

	abstract := StripMarkup(raw.Abstract)

	authors := make([]string, 0, len(raw.Authors))
	for _, a := range raw.Authors {
		if a = CollapseSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	return model.EvidenceCandidate{
		SourceDatabase:  raw.Source,
		EvidenceType:    Classify(raw, title+" "+abstract),
		Title:           title,
		Authors:         authors,
		Venue:           StripMarkup(raw.Venue),
		PublicationDate: ParseDate(raw.Date),
		DOI:             doi,
		URL:             link,
		Excerpt:         Excerpt(abstract, raw.Query),
		QueryUsed:       raw.Query,
	}, nil
}

// NormalizeAll converts every record, dropping and logging malformed ones
func (n *Normalizer) NormalizeAll(raws []source.RawRecord) []model.EvidenceCandidate {
	out := make([]model.EvidenceCandidate, 0, len(raws))
	for _, raw := range raws {
		c, err := n.Normalize(raw)
		if err != nil {
			n.logger.Warn("dropping record",
				zap.String("source", string(raw.Source)),
				zap.String("query", raw.Query),
				zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate accepts full dates, year-month, year and RFC3339 timestamps.
// Unparseable input yields nil.
func ParseDate(s string) *model.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1000 || t.Year() > 9999 {
			return nil
		}
		return model.NewDate(t.Year(), t.Month(), t.Day())
	}
	return nil
}
