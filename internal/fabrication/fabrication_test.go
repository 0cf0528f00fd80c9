package fabrication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/search"
	"github.com/Surjit27/Clairvox/internal/source"
)

type fakeSearcher struct {
	records map[model.SourceDatabase][]source.RawRecord
	errs    map[model.SourceDatabase]error
	block   map[model.SourceDatabase]bool // Wait for cancellation
	stall   map[string]bool               // Queries that wait for cancellation
}

func (f *fakeSearcher) Sources() []model.SourceDatabase {
	return model.AllSources()
}

func (f *fakeSearcher) SearchSource(ctx context.Context, db model.SourceDatabase, query string, limit int) search.SourceResult {
	res := search.SourceResult{Source: db, Query: query}
	if f.block[db] || f.stall[query] {
		<-ctx.Done()
		res.Err = ctx.Err()
		res.Abandoned = true
		return res
	}
	if err := f.errs[db]; err != nil {
		res.Err = err
		return res
	}
	res.Records = f.records[db]
	return res
}

func defaultConfig() model.FabricationConfig {
	return model.DefaultConfig().Fabrication
}

func TestHeuristicExtractor(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "fabricated terms",
			text: "The neural photon resonance chamber enables gravito-electroencephalography.",
			want: []string{"neural photon resonance chamber", "gravito-electroencephalography"},
		},
		{
			name: "stopwords and verbs break runs",
			text: "Optogenetic stimulation of engram cells in mice can induce recall of a memory",
			want: []string{"optogenetic stimulation", "engram cells"},
		},
		{
			name: "everyday phrases are not terms",
			text: "Drinking coffee daily lowers blood pressure in adults",
			want: nil,
		},
		{
			name: "acronyms and names",
			text: "Elevated CRP predicts Alzheimer progression",
			want: []string{"crp", "alzheimer progression"},
		},
		{
			name: "third-person verb ends the run",
			text: "Hippocampal memory consolidation depends on sleep spindles",
			want: []string{"hippocampal memory consolidation"},
		},
		{
			name: "sentence-initial capital is not a name",
			text: "Sleep improves mood. Exercise helps too.",
			want: nil,
		},
		{
			name: "duplicates removed",
			text: "Engram cells and engram cells.",
			want: []string{"engram cells"},
		},
		{
			name: "nothing to extract",
			text: "It is what it is.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeuristicExtractor{}.ExtractCandidateTerms(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeuristicExtractor_MaxTerms(t *testing.T) {
	got := HeuristicExtractor{MaxTerms: 2}.ExtractCandidateTerms("CRP, IL6, TNF, MRI")
	assert.Equal(t, []string{"crp", "il6"}, got)
}

func TestHeuristicExtractor_Deterministic(t *testing.T) {
	text := "The neural photon resonance chamber enables gravito-electroencephalography in humans."
	first := HeuristicExtractor{}.ExtractCandidateTerms(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, HeuristicExtractor{}.ExtractCandidateTerms(text))
	}
}

func TestConceptExtractor(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "content runs",
			text: "Optogenetic stimulation of engram cells in mice can induce recall of a memory",
			want: []string{"optogenetic stimulation", "engram cells"},
		},
		{
			name: "long runs are chunked",
			text: "quantum entangled photon pair source array device",
			want: []string{"quantum entangled photon pair", "source array device"},
		},
		{
			name: "numbers break runs",
			text: "vitamin supplement 2000 daily dose",
			want: []string{"vitamin supplement", "daily dose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConceptExtractor{}.ExtractCandidateTerms(tt.text))
		})
	}

	got := ConceptExtractor{MaxTerms: 2}.ExtractCandidateTerms("alpha beta, gamma delta, epsilon zeta")
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, got)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 1, levenshtein("naïve", "naive"))
}

func TestMatcher(t *testing.T) {
	m := newMatcher("engram cells", 0.2)

	assert.True(t, m.matches("Reactivation of Engram Cells restores memory"))
	assert.True(t, m.matches("engram cell ensembles"), "near-miss spelling counts")
	assert.False(t, m.matches("memory traces in the hippocampus"))

	hyphen := newMatcher("gravito-electroencephalography", 0.2)
	assert.True(t, hyphen.matches("a gravito electroencephalography study"))
	assert.False(t, hyphen.matches("electroencephalography"))
}

func TestMatcher_Hits(t *testing.T) {
	m := newMatcher("engram cells", 0.2)
	records := []source.RawRecord{
		{Title: "Engram cells retain memory under amnesia"},
		{Title: "Unrelated", Abstract: "<p>We tagged <i>engram</i> cells in mice.</p>"},
		{Title: "Sleep and memory"},
	}
	assert.Equal(t, 2, m.hits(records))
}

func TestMatcher_ComponentWords(t *testing.T) {
	m := newMatcher("hippocampal memory consolidation", 0.2)
	records := []source.RawRecord{
		{Title: "Sleep-dependent memory consolidation in the hippocampus"},
		{Title: "Memory consolidation during sleep"},
	}
	assert.Equal(t, 1, m.hits(records), "reworded phrase with every word present")

	single := newMatcher("zorblax", 0.2)
	assert.False(t, single.hasComponents("a zorblax study"), "single words use the phrase match")
}

func TestDetector_AllSourcesEmpty(t *testing.T) {
	d := NewDetector(&fakeSearcher{}, defaultConfig())

	report := d.Check(context.Background(),
		model.NewClaim("The neural photon resonance chamber enables gravito-electroencephalography."))

	require.Len(t, report.Findings, 2)
	assert.ElementsMatch(t,
		[]string{"neural photon resonance chamber", "gravito-electroencephalography"},
		report.FabricatedTerms())
	assert.False(t, report.Partial)
	assert.Len(t, report.Actions, 6)
	for _, a := range report.Actions {
		assert.Equal(t, model.StageFabrication, a.Stage)
		assert.Equal(t, model.ActionOK, a.Status)
	}
	assert.Equal(t, `"neural photon resonance chamber"`, report.Findings[0].SearchEvidence[0].Query)
}

func TestDetector_HitCancelsOtherSources(t *testing.T) {
	s := &fakeSearcher{
		records: map[model.SourceDatabase][]source.RawRecord{
			model.SourceCrossRef: {{Title: "Memory engram cells have come of age"}},
		},
		block: map[model.SourceDatabase]bool{
			model.SourceEuropePMC: true,
			model.SourceArXiv:     true,
		},
	}
	d := NewDetector(s, defaultConfig())

	report := d.Check(context.Background(), model.NewClaim("engram cells"))

	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.False(t, f.Fabricated)
	assert.Equal(t, 1, f.HitCount)
	assert.Equal(t, model.ActionOK, f.SearchEvidence[0].Status)
	assert.Equal(t, model.ActionAbandoned, f.SearchEvidence[1].Status)
	assert.Equal(t, model.ActionAbandoned, f.SearchEvidence[2].Status)
	assert.False(t, report.Partial, "abandoned queries are not failures")
}

func TestDetector_OnTopicEverydayClaim(t *testing.T) {
	records := []source.RawRecord{
		{
			Title:    "Coffee consumption and blood pressure: a meta-analysis of randomized trials",
			Abstract: "Habitual coffee drinking was not associated with hypertension in adults.",
		},
		{
			Title:    "Caffeine intake and arterial stiffness in normotensive adults",
			Abstract: "Daily caffeine lowered systolic pressure by 2 mmHg.",
		},
	}
	s := &fakeSearcher{records: map[model.SourceDatabase][]source.RawRecord{
		model.SourceEuropePMC: records,
		model.SourceCrossRef:  records,
	}}
	d := NewDetector(s, defaultConfig())

	report := d.Check(context.Background(),
		model.NewClaim("Drinking coffee daily lowers blood pressure in adults"))

	assert.Empty(t, report.FabricatedTerms())
	assert.Empty(t, report.Findings, "no technical term to look up")
}

func TestDetector_RewordedTermIsNotFabricated(t *testing.T) {
	s := &fakeSearcher{records: map[model.SourceDatabase][]source.RawRecord{
		model.SourceEuropePMC: {{
			Title:    "Sleep-dependent memory consolidation in the hippocampus",
			Abstract: "Spindle density predicted overnight retention.",
		}},
	}}
	d := NewDetector(s, defaultConfig())

	report := d.Check(context.Background(),
		model.NewClaim("Hippocampal memory consolidation depends on sleep spindles"))

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "hippocampal memory consolidation", report.Findings[0].Term)
	assert.False(t, report.Findings[0].Fabricated)
	assert.Equal(t, 1, report.Findings[0].HitCount)
}

func TestDetector_FabricatedTermCancelsOtherTerms(t *testing.T) {
	s := &fakeSearcher{stall: map[string]bool{`"engram cells"`: true}}
	d := NewDetector(s, defaultConfig(), WithExtractor(fixedExtractor{"zorblax", "engram cells"}))

	done := make(chan Report, 1)
	go func() { done <- d.Check(context.Background(), model.NewClaim("anything")) }()

	var report Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lookups for other terms kept running after a fabricated term")
	}

	require.Len(t, report.Findings, 2)
	assert.Equal(t, []string{"zorblax"}, report.FabricatedTerms())

	other := report.Findings[1]
	assert.False(t, other.Fabricated, "cancelled lookups leave the term undecided")
	for _, ts := range other.SearchEvidence {
		assert.Equal(t, model.ActionAbandoned, ts.Status)
	}
	assert.False(t, report.Partial, "abandoned queries are not failures")
}

func TestDetector_FailedSourceIsUndecided(t *testing.T) {
	s := &fakeSearcher{
		errs: map[model.SourceDatabase]error{
			model.SourceArXiv: errors.New("timeout"),
		},
	}
	d := NewDetector(s, defaultConfig())

	report := d.Check(context.Background(), model.NewClaim("neural photon resonance chamber"))

	require.Len(t, report.Findings, 1)
	assert.False(t, report.Findings[0].Fabricated)
	assert.Empty(t, report.FabricatedTerms())
	assert.True(t, report.Partial)
	assert.Equal(t, model.ActionFailed, report.Findings[0].SearchEvidence[2].Status)
	assert.Equal(t, "timeout", report.Findings[0].SearchEvidence[2].Error)
}

func TestDetector_NearMissIsNotFabricated(t *testing.T) {
	s := &fakeSearcher{
		records: map[model.SourceDatabase][]source.RawRecord{
			model.SourceEuropePMC: {{Title: "Optogenetic stimulations of the hippocampus"}},
		},
	}
	d := NewDetector(s, defaultConfig())

	report := d.Check(context.Background(), model.NewClaim("optogenetic stimulation"))
	require.Len(t, report.Findings, 1)
	assert.False(t, report.Findings[0].Fabricated)
}

type fixedExtractor []string

func (f fixedExtractor) ExtractCandidateTerms(string) []string { return f }

func TestDetector_CustomExtractor(t *testing.T) {
	d := NewDetector(&fakeSearcher{}, defaultConfig(), WithExtractor(fixedExtractor{"zorblax"}))
	report := d.Check(context.Background(), model.NewClaim("anything at all"))
	assert.Equal(t, []string{"zorblax"}, report.FabricatedTerms())
}

func TestDetector_NoTerms(t *testing.T) {
	d := NewDetector(&fakeSearcher{}, defaultConfig())
	report := d.Check(context.Background(), model.NewClaim("It is."))
	assert.Empty(t, report.Findings)
	assert.Empty(t, report.Actions)
}
