package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/source"
)

func TestResolveDOI(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		fallbacks []string
		want      string
	}{
		{"structured", "10.1038/nature11028", nil, "10.1038/nature11028"},
		{"resolver prefix", "https://doi.org/10.1038/nature11028", nil, "10.1038/nature11028"},
		{"invalid field falls back", "n/a", []string{`{"URL":"http://dx.doi.org/10.1126/science.1225266"}`}, "10.1126/science.1225266"},
		{"trailing punctuation", "", []string{"see doi:10.1016/j.neuron.2015.01.001."}, "10.1016/j.neuron.2015.01.001"},
		{"balanced parentheses kept", "", []string{"10.1016/S0140-6736(20)30183-5"}, "10.1016/S0140-6736(20)30183-5"},
		{"unbalanced parenthesis dropped", "", []string{"(doi 10.1234/abcd)"}, "10.1234/abcd"},
		{"absent", "", []string{"no identifier here"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDOI(tt.field, tt.fallbacks...))
		})
	}
}

func TestStripMarkup(t *testing.T) {
	in := "<jats:title>Abstract</jats:title><jats:p>Memory &amp; learning in <italic>mice</italic>.</jats:p>"
	assert.Equal(t, "Memory & learning in mice .", StripMarkup(in))
	assert.Equal(t, "plain text", StripMarkup("  plain \n text "))
}

func TestExcerpt(t *testing.T) {
	assert.Empty(t, Excerpt("too short to excerpt", "short"))

	nine := "one two three four five six seven eight nine"
	assert.Empty(t, Excerpt(nine, "one"))

	twelve := nine + " ten eleven twelve"
	assert.Equal(t, twelve, Excerpt(twelve, "anything"))

	filler := strings.Repeat("background ", 40)
	text := filler + "engram cells store memory traces in the hippocampus of mice " + filler
	got := Excerpt(text, "memory engram hippocampus")
	words := strings.Fields(got)
	assert.Len(t, words, 25)
	assert.Contains(t, got, "engram cells store memory traces in the hippocampus")
}

func TestParseDate(t *testing.T) {
	d := ParseDate("2012-03-22")
	require.NotNil(t, d)
	assert.Equal(t, "2012-03-22", d.String())

	d = ParseDate("2021-01-01T10:00:00Z")
	require.NotNil(t, d)
	assert.Equal(t, "2021-01-01", d.String())

	d = ParseDate("2019")
	require.NotNil(t, d)
	assert.Equal(t, time.January, d.Month())

	assert.Nil(t, ParseDate("Spring 2019"))
	assert.Nil(t, ParseDate(""))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		raw     source.RawRecord
		content string
		want    model.EvidenceType
	}{
		{"arxiv preprint", source.RawRecord{Source: model.SourceArXiv}, "mice", model.EvidencePreprint},
		{"arxiv published animal", source.RawRecord{Source: model.SourceArXiv, JournalRef: "Nature 1"}, "in mice", model.EvidencePeerReviewedAnimal},
		{"arxiv published no subject", source.RawRecord{Source: model.SourceArXiv, JournalRef: "PRL 1"}, "spin chains", model.EvidencePreprint},
		{"crossref posted content", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"posted-content"}}, "patients", model.EvidencePreprint},
		{"crossref proceedings", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"proceedings-article"}}, "", model.EvidenceConference},
		{"crossref human", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"journal-article"}}, "a randomized trial in 200 patients", model.EvidencePeerReviewedHuman},
		{"human wins", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"journal-article"}}, "mice and human participants", model.EvidencePeerReviewedHuman},
		{"crossref no subject", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"journal-article"}}, "a theoretical note", model.EvidenceUnknown},
		{"crossref book", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"book-chapter"}}, "patients", model.EvidenceUnknown},
		{"europepmc mesh", source.RawRecord{Source: model.SourceEuropePMC, Origin: "MED", Types: []string{"mesh:Mice"}}, "engram", model.EvidencePeerReviewedAnimal},
		{"europepmc preprint", source.RawRecord{Source: model.SourceEuropePMC, Origin: "PPR"}, "patients", model.EvidencePreprint},
		{"news", source.RawRecord{Source: model.SourceEuropePMC, Types: []string{"News"}}, "", model.EvidenceNews},
		{"no substring match", source.RawRecord{Source: model.SourceCrossRef, Types: []string{"journal-article"}}, "humanities scholarship", model.EvidenceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw, tt.content))
		})
	}
}

func TestNormalize(t *testing.T) {
	n := New(nil)

	c, err := n.Normalize(source.RawRecord{
		Source:   model.SourceCrossRef,
		Title:    "  Optogenetic stimulation of a hippocampal engram. ",
		Authors:  []string{"Xu  Liu", " "},
		Venue:    "Nature",
		Date:     "2012-04-19",
		DOI:      "10.1038/nature11028",
		Abstract: "<jats:p>Memory engram cells in the dentate gyrus of mice were labelled and later reactivated with light to drive recall.</jats:p>",
		Types:    []string{"journal-article"},
		Query:    "memory engram",
	})
	require.NoError(t, err)
	assert.Equal(t, "Optogenetic stimulation of a hippocampal engram", c.Title)
	assert.Equal(t, []string{"Xu Liu"}, c.Authors)
	assert.Equal(t, "https://doi.org/10.1038/nature11028", c.URL)
	assert.Equal(t, model.EvidencePeerReviewedAnimal, c.EvidenceType)
	assert.Equal(t, "memory engram", c.QueryUsed)
	assert.NotEmpty(t, c.Excerpt)
	assert.Nil(t, c.RelevanceScore)
}

func TestNormalize_MissingFieldsStayEmpty(t *testing.T) {
	c, err := New(nil).Normalize(source.RawRecord{Source: model.SourceArXiv, Title: "Only a title", Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, c.DOI)
	assert.Empty(t, c.URL)
	assert.Empty(t, c.Venue)
	assert.Empty(t, c.Excerpt)
	assert.Nil(t, c.PublicationDate)
	assert.NotNil(t, c.Authors)
}

func TestNormalizeAll_DropsMalformed(t *testing.T) {
	out := New(nil).NormalizeAll([]source.RawRecord{
		{Source: model.SourceCrossRef, Title: "Kept", Query: "q"},
		{Source: model.SourceCrossRef, Abstract: "no title, no identifiers", Query: "q"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Kept", out[0].Title)

	_, err := New(nil).Normalize(source.RawRecord{})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
