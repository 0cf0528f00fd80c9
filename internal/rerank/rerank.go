// Package rerank scores evidence candidates by semantic similarity to the
// claim and separates out the ones below the relevance threshold.
package rerank

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/embed"
	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
)

// Result is the outcome of reranking one candidate set
type Result struct {
	Ranked   []model.EvidenceCandidate // Every scored candidate, best first
	Eligible []model.EvidenceCandidate // Scored at or above threshold
	Filtered []model.EvidenceCandidate // Scored below threshold, kept for audit
	Unscored []model.EvidenceCandidate // Embedding failed; never eligible
	Degraded bool                      // Embedding backend was unavailable
}

// Reranker assigns relevance scores with an embedding backend
type Reranker struct {
	embedder embed.Embedder
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Option configures a Reranker
type Option func(*Reranker)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Reranker) { r.logger = l }
}

// WithMetrics counts embedding failures
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reranker) { r.metrics = m }
}

// New creates a reranker
func New(e embed.Embedder, opts ...Option) *Reranker {
	r := &Reranker{embedder: e, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rerank scores every unscored candidate against the claim and keeps those
// at or above threshold. Candidates that already carry a score are not
// re-embedded, so reranking a reranked set is a no-op.
func (r *Reranker) Rerank(ctx context.Context, claim model.Claim, candidates []model.EvidenceCandidate, threshold float64) Result {
	items := make([]model.EvidenceCandidate, len(candidates))
	copy(items, candidates)

	var pending []int
	for i, c := range items {
		if !c.Scored() {
			pending = append(pending, i)
		}
	}

	var res Result
	if len(pending) > 0 {
		if err := r.score(ctx, claim, items, pending); err != nil {
			res.Degraded = true
			r.metrics.EmbeddingFailure()
			r.logger.Warn("relevance scoring unavailable, keeping candidates unscored",
				zap.String("embedder", r.embedder.Name()),
				zap.Int("candidates", len(pending)),
				zap.Error(err))
		}
	}

	for _, c := range items {
		if c.Scored() {
			res.Ranked = append(res.Ranked, c)
		} else {
			res.Unscored = append(res.Unscored, c)
		}
	}
	Sort(res.Ranked)
	Sort(res.Unscored)

	for _, c := range res.Ranked {
		if c.Relevance() >= threshold {
			res.Eligible = append(res.Eligible, c)
		} else {
			res.Filtered = append(res.Filtered, c)
		}
	}
	return res
}

func (r *Reranker) score(ctx context.Context, claim model.Claim, items []model.EvidenceCandidate, pending []int) error {
	texts := make([]string, 0, len(pending)+1)
	texts = append(texts, claim.Text)
	for _, i := range pending {
		texts = append(texts, candidateText(items[i]))
	}

	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return embed.ErrEmbeddingUnavailable
	}

	for k, i := range pending {
		sim := embed.Cosine(vectors[0], vectors[k+1])
		items[i].RelevanceScore = model.Float64(math.Round(sim*1e4) / 1e4)
	}
	return nil
}

func candidateText(c model.EvidenceCandidate) string {
	if c.Excerpt == "" {
		return c.Title
	}
	return c.Title + ". " + c.Excerpt
}

// Sort orders candidates by relevance, then recency, then evidence type
// weight, then title and DOI so equal inputs always sort the same way.
func Sort(items []model.EvidenceCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Relevance() != b.Relevance() {
			return a.Relevance() > b.Relevance()
		}
		if da, db := dateKey(a), dateKey(b); da != db {
			return da > db
		}
		if a.EvidenceType.Weight() != b.EvidenceType.Weight() {
			return a.EvidenceType.Weight() > b.EvidenceType.Weight()
		}
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c < 0
		}
		return a.DOI < b.DOI
	})
}

// dateKey sorts undated items last
func dateKey(c model.EvidenceCandidate) int64 {
	if c.PublicationDate == nil {
		return math.MinInt64
	}
	return c.PublicationDate.Unix()
}
