package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/embed"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/search"
	"github.com/Surjit27/Clairvox/internal/source"
)

// fakeSearcher routes queries by shape: quoted queries are fabrication
// lookups, queries ending in a refutation marker are contradiction lookups
type fakeSearcher struct {
	mu            sync.Mutex
	evidence      map[model.SourceDatabase][]source.RawRecord
	contradiction map[model.SourceDatabase][]source.RawRecord
	unknownTerms  bool // Fabrication lookups find nothing
	errs          map[model.SourceDatabase]error
	queries       []string
}

func (f *fakeSearcher) Sources() []model.SourceDatabase {
	return model.AllSources()
}

func (f *fakeSearcher) SearchSource(_ context.Context, db model.SourceDatabase, query string, _ int) search.SourceResult {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	res := search.SourceResult{Source: db, Query: query}
	if err := f.errs[db]; err != nil {
		res.Err = err
		return res
	}

	var records []source.RawRecord
	switch {
	case strings.HasPrefix(query, `"`):
		if !f.unknownTerms {
			records = []source.RawRecord{{Source: db, Title: strings.Trim(query, `"`)}}
		}
	case isContradictionQuery(query):
		records = f.contradiction[db]
	default:
		records = f.evidence[db]
	}
	for _, r := range records {
		r.Query = query
		res.Records = append(res.Records, r)
	}
	return res
}

func (f *fakeSearcher) SearchMany(ctx context.Context, queries []string, sources []model.SourceDatabase, limit int) search.Response {
	if sources == nil {
		sources = f.Sources()
	}
	var resp search.Response
	for _, q := range queries {
		for _, db := range sources {
			r := f.SearchSource(ctx, db, q, limit)
			resp.Results = append(resp.Results, r)
			if r.Failed() {
				resp.Partial = true
				continue
			}
			resp.Records = append(resp.Records, r.Records...)
		}
	}
	return resp
}

func isContradictionQuery(q string) bool {
	for _, m := range model.DefaultConfig().Contradiction.Markers {
		if strings.HasSuffix(q, " "+m) {
			return true
		}
	}
	return false
}

// keywordEmbedder places texts mentioning the keyword on one axis and
// everything else on the other
type keywordEmbedder struct {
	keyword string
	err     error
}

func (k keywordEmbedder) Name() string { return "keyword" }

func (k keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), k.keyword) {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

func newVerifier(s *fakeSearcher, e keywordEmbedder) *Verifier {
	return New(model.DefaultConfig(), s, e, WithClock(func() time.Time { return fixedNow }))
}

const engramClaim = "Optogenetic stimulation of engram cells in mice can induce recall of a memory"

func engramSearcher() *fakeSearcher {
	return &fakeSearcher{
		evidence: map[model.SourceDatabase][]source.RawRecord{
			model.SourceCrossRef: {{
				Source:   model.SourceCrossRef,
				Title:    "Optogenetic stimulation of a hippocampal engram activates fear memory recall",
				Abstract: "Engram cells in the dentate gyrus of mice were labelled and reactivated with light.",
				Venue:    "Nature",
				Date:     "2012-03-22",
				DOI:      "10.1038/nature11028",
				Types:    []string{"journal-article"},
			}},
		},
	}
}

func TestVerify_EngramClaim(t *testing.T) {
	v := newVerifier(engramSearcher(), keywordEmbedder{keyword: "engram"})

	r := v.Verify(context.Background(), engramClaim)

	assert.Equal(t, model.ClassWeaklySupported, r.Classification)
	assert.Equal(t, 25, r.ConfidenceScore)
	assert.Equal(t, model.ColorOrange, r.ConfidenceColor)
	assert.Equal(t, model.ReplicationOriginalOnly, r.ReplicationStatus)
	assert.Equal(t, model.DataQualityComplete, r.DataQuality)
	assert.Equal(t, model.RankingNormal, r.RankingConfidence)
	assert.Empty(t, r.FabricatedTerms)
	assert.Empty(t, r.Contradictions)

	require.Len(t, r.TopEvidence, 1)
	assert.Equal(t, "10.1038/nature11028", r.TopEvidence[0].DOI)
	assert.Equal(t, model.EvidencePeerReviewedAnimal, r.TopEvidence[0].EvidenceType)
	assert.Equal(t, 1, r.EvidenceConsidered, "duplicates across queries are merged")

	require.NotEmpty(t, r.Drivers)
	assert.Contains(t, r.Drivers[0], "+25")
	assert.NotEmpty(t, r.ExplanationPlain)
	assert.NotEmpty(t, r.SuggestedCorrections)

	stages := map[model.SearchStage]int{}
	for _, a := range r.SearchActions {
		stages[a.Stage]++
	}
	assert.Positive(t, stages[model.StageFabrication])
	assert.Positive(t, stages[model.StageEvidence])
	assert.Positive(t, stages[model.StageContradiction])

	assert.NotEmpty(t, r.VerificationID)
	assert.Equal(t, fixedNow.UTC(), r.VerifiedAt)
}

func TestVerify_EngramClaimWithHashEmbedder(t *testing.T) {
	cfg := model.DefaultConfig()
	v := New(cfg, engramSearcher(), embed.NewHashEmbedder(cfg.Embedding.Dimensions),
		WithClock(func() time.Time { return fixedNow }))

	r := v.Verify(context.Background(), engramClaim)

	assert.Equal(t, model.ClassWeaklySupported, r.Classification)
	assert.Equal(t, model.RankingLow, r.RankingConfidence, "lexical relevance is approximate")
	assert.Empty(t, r.FabricatedTerms)
	require.Len(t, r.TopEvidence, 1)
	assert.Equal(t, "10.1038/nature11028", r.TopEvidence[0].DOI)
	assert.GreaterOrEqual(t, r.TopEvidence[0].Relevance(), cfg.Rerank.HashThreshold)
	assert.Less(t, r.TopEvidence[0].Relevance(), cfg.Rerank.Threshold)
}

func TestVerify_FabricatedClaim(t *testing.T) {
	s := &fakeSearcher{unknownTerms: true}
	v := newVerifier(s, keywordEmbedder{keyword: "photon"})

	r := v.Verify(context.Background(),
		"The neural photon resonance chamber enables gravito-electroencephalography.")

	assert.Equal(t, model.ClassFabricated, r.Classification)
	assert.LessOrEqual(t, r.ConfidenceScore, 5)
	assert.Equal(t, model.ColorRed, r.ConfidenceColor)
	assert.ElementsMatch(t,
		[]string{"neural photon resonance chamber", "gravito-electroencephalography"},
		r.FabricatedTerms)
	assert.Empty(t, r.TopEvidence)
	assert.NotNil(t, r.TopEvidence)
	require.NotEmpty(t, r.SearchActions)
	for _, a := range r.SearchActions {
		assert.Equal(t, model.StageFabrication, a.Stage, "evidence search is skipped")
	}
}

func TestVerify_ImplausibleClaim(t *testing.T) {
	s := &fakeSearcher{}
	v := newVerifier(s, keywordEmbedder{keyword: "transfer"})

	r := v.Verify(context.Background(), "Instantaneous knowledge transfer across any distance is possible")

	assert.Equal(t, model.ClassPhysicallyImplausible, r.Classification)
	assert.Equal(t, 0, r.ConfidenceScore)
	assert.Equal(t, model.ColorRed, r.ConfidenceColor)
	assert.Empty(t, r.SearchActions)
	assert.Empty(t, s.queries, "no database is consulted")
	var ids []string
	for _, dv := range r.DomainViolations {
		ids = append(ids, dv.RuleID)
	}
	assert.Contains(t, ids, "physics.instantaneous-transfer")
}

func TestVerify_SourceTimeoutIsPartial(t *testing.T) {
	s := engramSearcher()
	s.errs = map[model.SourceDatabase]error{model.SourceArXiv: context.DeadlineExceeded}
	v := newVerifier(s, keywordEmbedder{keyword: "engram"})

	r := v.Verify(context.Background(), engramClaim)

	assert.Equal(t, model.DataQualityPartial, r.DataQuality)
	assert.Equal(t, model.ClassWeaklySupported, r.Classification)

	var failed int
	for _, a := range r.SearchActions {
		if a.Status == model.ActionFailed {
			failed++
			assert.Equal(t, model.SourceArXiv, a.Source)
		}
	}
	assert.Positive(t, failed)
}

func TestVerify_Contradiction(t *testing.T) {
	s := &fakeSearcher{
		evidence: map[model.SourceDatabase][]source.RawRecord{
			model.SourceCrossRef: {{
				Source: model.SourceCrossRef,
				Title:  "Engram reactivation in human patients with epilepsy",
				DOI:    "10.1/support",
				Types:  []string{"journal-article"},
			}},
		},
		contradiction: map[model.SourceDatabase][]source.RawRecord{
			model.SourceEuropePMC: {{
				Source: model.SourceEuropePMC,
				Title:  "Engram reactivation effects failed to replicate in human volunteers",
				DOI:    "10.1/refute",
				Origin: "MED",
			}},
		},
	}
	v := newVerifier(s, keywordEmbedder{keyword: "engram"})

	r := v.Verify(context.Background(), "Engram reactivation restores memory in humans")

	require.Len(t, r.Contradictions, 1)
	assert.Equal(t, "10.1/refute", r.Contradictions[0].DOI)
	assert.Equal(t, string(model.SourceEuropePMC), r.Contradictions[0].Source)
	assert.Equal(t, model.ClassUnsupported, r.Classification)
	assert.Equal(t, 0, r.ConfidenceScore)
	for _, e := range r.TopEvidence {
		assert.NotEqual(t, "10.1/refute", e.DOI, "refuting items never count as support")
	}
}

func TestVerify_EmbeddingFailureLowersRankingConfidence(t *testing.T) {
	v := newVerifier(engramSearcher(), keywordEmbedder{err: errors.New("embedding backend down")})

	r := v.Verify(context.Background(), engramClaim)

	assert.Equal(t, model.RankingLow, r.RankingConfidence)
	assert.Empty(t, r.TopEvidence)
	assert.Equal(t, model.ClassUnsupported, r.Classification)
	assert.Less(t, r.ConfidenceScore, 25)
}

func TestVerify_EmptyClaim(t *testing.T) {
	s := &fakeSearcher{}
	v := newVerifier(s, keywordEmbedder{keyword: "x"})

	r := v.Verify(context.Background(), "   ")

	assert.Equal(t, model.ClassUnsupported, r.Classification)
	assert.Equal(t, 0, r.ConfidenceScore)
	assert.NotNil(t, r.SearchActions)
	assert.Empty(t, r.SearchActions)
	assert.Empty(t, s.queries)
}

func TestVerify_Deterministic(t *testing.T) {
	v := newVerifier(engramSearcher(), keywordEmbedder{keyword: "engram"})

	a := v.Verify(context.Background(), engramClaim)
	b := v.Verify(context.Background(), engramClaim)

	assert.NotEqual(t, a.VerificationID, b.VerificationID)
	a.VerificationID, b.VerificationID = "", ""
	assert.Equal(t, a.ConfidenceScore, b.ConfidenceScore)
	assert.Equal(t, a.Drivers, b.Drivers)
	assert.Equal(t, a.TopEvidence, b.TopEvidence)
	assert.ElementsMatch(t, a.SearchActions, b.SearchActions)
}

func TestVerify_ResultJSONFields(t *testing.T) {
	v := newVerifier(&fakeSearcher{unknownTerms: true}, keywordEmbedder{keyword: "x"})
	r := v.Verify(context.Background(), "The neural photon resonance chamber enables gravito-electroencephalography.")

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, r))

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	for _, name := range []string{
		"original_claim", "normalized_claim", "classification", "confidence_score",
		"confidence_color", "drivers", "top_evidence", "fabricated_terms",
		"replication_status", "contradictions", "explanation_plain",
		"suggested_corrections", "search_actions",
	} {
		assert.Contains(t, fields, name)
	}
	assert.Equal(t, "[]", string(fields["top_evidence"]))
}

func TestEvidenceQueries(t *testing.T) {
	v := newVerifier(&fakeSearcher{}, keywordEmbedder{})
	claim := model.NewClaim(engramClaim)

	queries := v.evidenceQueries(claim)
	require.Len(t, queries, 2)
	assert.Equal(t, claim.Normalized, queries[0])
	assert.Equal(t, "optogenetic stimulation engram cells", queries[1])

	contra := v.contradictionQueries(claim)
	assert.Equal(t, []string{
		"optogenetic stimulation engram cells no evidence",
		"optogenetic stimulation engram cells debunked",
		"optogenetic stimulation engram cells failed to replicate",
	}, contra)
}

func TestRenderSummary(t *testing.T) {
	v := newVerifier(engramSearcher(), keywordEmbedder{keyword: "engram"})
	r := v.Verify(context.Background(), engramClaim)

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "Verdict: Weakly Supported (25/100, orange)")
	assert.Contains(t, out, "Top evidence:")
	assert.Contains(t, out, "doi: 10.1038/nature11028")
}
