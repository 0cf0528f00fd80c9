package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SourceDatabase identifies a literature database
type SourceDatabase string

const (
	SourceCrossRef  SourceDatabase = "crossref"
	SourceEuropePMC SourceDatabase = "europepmc" // PubMed records via Europe PMC
	SourceArXiv     SourceDatabase = "arxiv"
)

// AllSources returns every supported database in fixed query order
func AllSources() []SourceDatabase {
	return []SourceDatabase{SourceCrossRef, SourceEuropePMC, SourceArXiv}
}

// ParseSource resolves a database name or alias
func ParseSource(name string) (SourceDatabase, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crossref":
		return SourceCrossRef, nil
	case "europepmc", "europe_pmc", "pubmed":
		return SourceEuropePMC, nil
	case "arxiv":
		return SourceArXiv, nil
	default:
		return "", fmt.Errorf("unknown source database: %q", name)
	}
}

// EvidenceType classifies the kind of publication an item is
type EvidenceType string

const (
	EvidencePeerReviewedHuman  EvidenceType = "peer-reviewed-primary-human"
	EvidencePeerReviewedAnimal EvidenceType = "peer-reviewed-primary-animal"
	EvidencePreprint           EvidenceType = "preprint"
	EvidenceConference         EvidenceType = "conference"
	EvidenceNews               EvidenceType = "news"
	EvidenceUnknown            EvidenceType = "unknown"
)

type evidenceTypeInfo struct {
	rank   int
	weight int
	label  string
}

var evidenceTypes = map[EvidenceType]evidenceTypeInfo{
	EvidencePeerReviewedHuman:  {rank: 5, weight: 50, label: "peer-reviewed human study"},
	EvidencePeerReviewedAnimal: {rank: 4, weight: 25, label: "peer-reviewed animal study"},
	EvidencePreprint:           {rank: 3, weight: 20, label: "preprint"},
	EvidenceConference:         {rank: 2, weight: 10, label: "conference paper"},
	EvidenceNews:               {rank: 1, weight: 8, label: "news report"},
	EvidenceUnknown:            {rank: 0, weight: 0, label: "unclassified publication"},
}

// Weight returns the base scoring weight of the evidence type
func (t EvidenceType) Weight() int {
	return evidenceTypes[t].weight
}

// Rank orders evidence types from strongest (5) to unknown (0)
func (t EvidenceType) Rank() int {
	return evidenceTypes[t].rank
}

// Label is the human-readable name used in drivers and explanations
func (t EvidenceType) Label() string {
	if info, ok := evidenceTypes[t]; ok {
		return info.label
	}
	return evidenceTypes[EvidenceUnknown].label
}

// IsPeerReviewedPrimary reports whether the type is a peer-reviewed primary study
func (t EvidenceType) IsPeerReviewedPrimary() bool {
	return t == EvidencePeerReviewedHuman || t == EvidencePeerReviewedAnimal
}

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to a calendar date
func NewDate(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// EvidenceCandidate is a normalized literature item returned by search
type EvidenceCandidate struct {
	SourceDatabase  SourceDatabase `json:"source_database"`
	EvidenceType    EvidenceType   `json:"evidence_type"`
	Title           string         `json:"title"`
	Authors         []string       `json:"authors"`
	Venue           string         `json:"venue,omitempty"`
	PublicationDate *Date          `json:"publication_date,omitempty"`
	DOI             string         `json:"doi,omitempty"`
	URL             string         `json:"url,omitempty"`
	Excerpt         string         `json:"excerpt,omitempty"`          // 10-25 word abstract window, empty when unavailable
	RelevanceScore  *float64       `json:"relevance_score,omitempty"` // nil until reranked
	QueryUsed       string         `json:"query_used"`
}

// Scored reports whether the reranker assigned a relevance score
func (c EvidenceCandidate) Scored() bool {
	return c.RelevanceScore != nil
}

// Relevance returns the relevance score, or 0 when unscored
func (c EvidenceCandidate) Relevance() float64 {
	if c.RelevanceScore == nil {
		return 0
	}
	return *c.RelevanceScore
}

// Reference returns the best short identifier for drivers and logs
func (c EvidenceCandidate) Reference() string {
	switch {
	case c.DOI != "":
		return "doi: " + c.DOI
	case c.URL != "":
		return c.URL
	default:
		return c.Title
	}
}

// IdentityKey is used to deduplicate the same item returned by several
// queries or databases: DOI first, then title, then URL.
func (c EvidenceCandidate) IdentityKey() string {
	switch {
	case c.DOI != "":
		return "doi:" + strings.ToLower(c.DOI)
	case c.Title != "":
		return "title:" + strings.Join(strings.Fields(strings.ToLower(c.Title)), " ")
	default:
		return "url:" + c.URL
	}
}

// Contradiction is an item whose content argues against the claim
type Contradiction struct {
	Source string `json:"source"`
	Detail string `json:"detail"`
	DOI    string `json:"doi,omitempty"`
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}
