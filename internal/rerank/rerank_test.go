package rerank

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/embed"
	"github.com/Surjit27/Clairvox/internal/model"
)

// keywordEmbedder puts each text on one axis per keyword it mentions
type keywordEmbedder struct {
	keywords []string
	err      error
	calls    int32
}

func (k *keywordEmbedder) Name() string { return "keyword" }

func (k *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&k.calls, 1)
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.keywords)+1)
		v[len(k.keywords)] = 0.01
		for j, kw := range k.keywords {
			if strings.Contains(strings.ToLower(t), kw) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func candidates() []model.EvidenceCandidate {
	return []model.EvidenceCandidate{
		{Title: "Galaxy rotation curves", EvidenceType: model.EvidencePreprint},
		{Title: "Optogenetic engram recall in mice", EvidenceType: model.EvidencePeerReviewedAnimal,
			PublicationDate: model.NewDate(2012, time.March, 22), DOI: "10.1038/nature11028"},
		{Title: "Engram cells and optogenetic recall", EvidenceType: model.EvidencePeerReviewedHuman,
			PublicationDate: model.NewDate(2015, time.May, 1)},
	}
}

var engramClaim = model.NewClaim("Optogenetic stimulation of engram cells can induce recall")

func TestRerank_FiltersBelowThreshold(t *testing.T) {
	e := &keywordEmbedder{keywords: []string{"optogenetic", "engram", "recall"}}
	r := New(e)

	res := r.Rerank(context.Background(), engramClaim, candidates(), 0.75)

	require.Len(t, res.Eligible, 2)
	assert.Len(t, res.Filtered, 1)
	assert.Len(t, res.Ranked, 3)
	assert.False(t, res.Degraded)
	assert.Empty(t, res.Unscored)
	for _, c := range res.Eligible {
		require.True(t, c.Scored())
		assert.GreaterOrEqual(t, c.Relevance(), 0.75)
	}
	// Equal relevance: newer first
	assert.Equal(t, "Engram cells and optogenetic recall", res.Eligible[0].Title)
}

func TestRerank_DoesNotMutateInput(t *testing.T) {
	in := candidates()
	New(&keywordEmbedder{keywords: []string{"engram"}}).Rerank(context.Background(), engramClaim, in, 0.5)
	for _, c := range in {
		assert.False(t, c.Scored())
	}
}

func TestRerank_Idempotent(t *testing.T) {
	e := &keywordEmbedder{keywords: []string{"optogenetic", "engram", "recall"}}
	r := New(e)

	first := r.Rerank(context.Background(), engramClaim, candidates(), 0.75)
	calls := atomic.LoadInt32(&e.calls)

	second := r.Rerank(context.Background(), engramClaim, first.Eligible, 0.75)

	assert.Equal(t, first.Eligible, second.Eligible)
	assert.Empty(t, second.Filtered)
	assert.Equal(t, calls, atomic.LoadInt32(&e.calls), "scored candidates are not re-embedded")
}

func TestRerank_EmbeddingFailureDegrades(t *testing.T) {
	e := &keywordEmbedder{err: errors.New("connection refused")}
	r := New(e)

	res := r.Rerank(context.Background(), engramClaim, candidates(), 0.75)

	assert.True(t, res.Degraded)
	assert.Empty(t, res.Eligible)
	require.Len(t, res.Unscored, 3)
	for _, c := range res.Unscored {
		assert.False(t, c.Scored())
	}
	// Unscored still sort deterministically: newest first
	assert.Equal(t, "Engram cells and optogenetic recall", res.Unscored[0].Title)
}

func TestRerank_ShortVectorResponseDegrades(t *testing.T) {
	r := New(shortEmbedder{})
	res := r.Rerank(context.Background(), engramClaim, candidates(), 0.75)
	assert.True(t, res.Degraded)
	assert.Len(t, res.Unscored, 3)
}

type shortEmbedder struct{}

func (shortEmbedder) Name() string { return "short" }

func (shortEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1}}, nil
}

func TestRerank_Empty(t *testing.T) {
	e := &keywordEmbedder{}
	res := New(e).Rerank(context.Background(), engramClaim, nil, 0.75)
	assert.Empty(t, res.Eligible)
	assert.Zero(t, atomic.LoadInt32(&e.calls))
}

func TestRerank_HashEmbedder(t *testing.T) {
	r := New(embed.NewHashEmbedder(512))
	res := r.Rerank(context.Background(), engramClaim, []model.EvidenceCandidate{
		{Title: "Optogenetic stimulation of engram cells can induce recall"},
		{Title: "Dark matter halos"},
	}, 0.75)
	require.Len(t, res.Eligible, 1)
	assert.InDelta(t, 1.0, res.Eligible[0].Relevance(), 1e-3)
	require.Len(t, res.Filtered, 1)
	assert.Equal(t, "Dark matter halos", res.Filtered[0].Title)
}

func TestRerank_HashEmbedderCalibratedThreshold(t *testing.T) {
	candidates := []model.EvidenceCandidate{
		{
			Title:   "Memory engram cells have come of age",
			Excerpt: "Engram cells are populations of neurons activated by learning whose reactivation by optogenetic stimulation induces recall of the memory.",
		},
		{
			Title:   "Creating a false memory in the hippocampus",
			Excerpt: "Optogenetic stimulation of hippocampal engram cells during fear conditioning produced recall of a context the mice never experienced.",
		},
		{
			Title:   "Coffee consumption and blood pressure: a meta-analysis of randomized trials",
			Excerpt: "Habitual coffee drinking was not associated with hypertension in adults.",
		},
	}
	r := New(embed.NewHashEmbedder(512))
	cfg := model.DefaultConfig().Rerank

	semantic := r.Rerank(context.Background(), engramClaim, candidates, cfg.ThresholdFor(false))
	assert.Empty(t, semantic.Eligible, "lexical scores never reach the semantic cut-off")

	res := r.Rerank(context.Background(), engramClaim, candidates, cfg.ThresholdFor(true))
	require.Len(t, res.Eligible, 2)
	for _, c := range res.Eligible {
		assert.Less(t, c.Relevance(), cfg.Threshold)
	}
	require.Len(t, res.Filtered, 1)
	assert.Contains(t, res.Filtered[0].Title, "Coffee")
}

func TestSort_Deterministic(t *testing.T) {
	items := []model.EvidenceCandidate{
		{Title: "B", RelevanceScore: model.Float64(0.8), EvidenceType: model.EvidencePreprint},
		{Title: "A", RelevanceScore: model.Float64(0.8), EvidenceType: model.EvidencePreprint},
		{Title: "C", RelevanceScore: model.Float64(0.8), EvidenceType: model.EvidencePeerReviewedHuman},
		{Title: "D", RelevanceScore: model.Float64(0.9), EvidenceType: model.EvidenceNews},
	}
	Sort(items)

	var titles []string
	for _, c := range items {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, titles)
}
