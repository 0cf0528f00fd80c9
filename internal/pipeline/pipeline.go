// Package pipeline runs a claim through every verification stage and
// assembles the confidence result.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Surjit27/Clairvox/internal/embed"
	"github.com/Surjit27/Clairvox/internal/fabrication"
	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/normalize"
	"github.com/Surjit27/Clairvox/internal/rerank"
	"github.com/Surjit27/Clairvox/internal/rules"
	"github.com/Surjit27/Clairvox/internal/score"
	"github.com/Surjit27/Clairvox/internal/search"
)

const contradictionLimit = 5

// Searcher is the part of search.Searcher the verifier needs
type Searcher interface {
	fabrication.Searcher
	SearchMany(ctx context.Context, queries []string, sources []model.SourceDatabase, limit int) search.Response
}

// Verifier orchestrates the complete verification of one claim
type Verifier struct {
	rules      *rules.Engine
	detector   *fabrication.Detector // nil when fabrication checks are disabled
	searcher   Searcher
	normalizer *normalize.Normalizer
	reranker   *rerank.Reranker
	aggregator *score.Aggregator
	concepts   fabrication.TermExtractor

	threshold            float64
	lexical              bool // Relevance comes from word overlap
	contradictionSources []model.SourceDatabase // nil when contradiction search is disabled
	contradictionMarkers []string
	finder               contradictionFinder

	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Verifier
type Option func(*Verifier)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithMetrics records verification metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// WithClock overrides the verification timestamp source
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// New creates a verifier from configuration
func New(cfg model.Config, searcher Searcher, embedder embed.Embedder, opts ...Option) *Verifier {
	v := &Verifier{
		searcher:             searcher,
		aggregator:           score.NewAggregator(),
		concepts:             fabrication.ConceptExtractor{MaxTerms: 4},
		threshold:            cfg.Rerank.ThresholdFor(embed.IsLexical(embedder)),
		lexical:              embed.IsLexical(embedder),
		contradictionMarkers: cfg.Contradiction.Markers,
		finder:               newContradictionFinder(cfg.Contradiction.Markers),
		logger:               zap.NewNop(),
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.rules = rules.NewEngine(cfg.Rules.Custom, v.logger)
	v.normalizer = normalize.New(v.logger)
	v.reranker = rerank.New(embedder, rerank.WithLogger(v.logger), rerank.WithMetrics(v.metrics))
	if cfg.Fabrication.Enabled {
		v.detector = fabrication.NewDetector(searcher, cfg.Fabrication, fabrication.WithLogger(v.logger))
	}
	if cfg.Contradiction.Enabled {
		for _, name := range cfg.Contradiction.Sources {
			if db, err := model.ParseSource(name); err == nil && hasSource(searcher.Sources(), db) {
				v.contradictionSources = append(v.contradictionSources, db)
			}
		}
	}
	return v
}

// Verify runs every stage for one claim. It never fails: unavailable
// sources degrade the result and are flagged in data_quality.
func (v *Verifier) Verify(ctx context.Context, text string) *model.ConfidenceResult {
	start := time.Now()
	claim := model.NewClaim(text)
	result := newResult(claim, v.now())

	outcome := v.run(ctx, claim, result)
	applyOutcome(result, outcome)

	elapsed := time.Since(start)
	v.metrics.Verification(string(result.Classification), string(result.DataQuality), elapsed)
	v.logger.Info("claim verified",
		zap.String("verification_id", result.VerificationID),
		zap.String("classification", string(result.Classification)),
		zap.Int("score", result.ConfidenceScore),
		zap.String("data_quality", string(result.DataQuality)),
		zap.Int("searches", len(result.SearchActions)),
		zap.Duration("elapsed", elapsed))
	return result
}

func (v *Verifier) run(ctx context.Context, claim model.Claim, result *model.ConfidenceResult) score.Outcome {
	if claim.IsEmpty() {
		return v.aggregator.Aggregate(score.Input{Claim: claim, Replication: model.ReplicationNone})
	}

	// 1. Domain rules
	violations := v.rules.Evaluate(claim)
	result.DomainViolations = violations
	if rules.HasCritical(violations) {
		v.logger.Debug("short-circuit: critical domain violation", zap.String("claim", claim.Text))
		return v.aggregator.Aggregate(score.Input{Claim: claim, Violations: violations})
	}

	// 2. Fabricated terms
	if v.detector != nil {
		report := v.detector.Check(ctx, claim)
		result.FabricationFindings = report.Findings
		result.SearchActions = append(result.SearchActions, report.Actions...)
		if report.Partial {
			result.DataQuality = model.DataQualityPartial
		}
		if terms := report.FabricatedTerms(); len(terms) > 0 {
			result.FabricatedTerms = terms
			v.logger.Debug("short-circuit: fabricated terms", zap.Strings("terms", terms))
			return v.aggregator.Aggregate(score.Input{Claim: claim, Violations: violations, FabricatedTerms: terms})
		}
	}

	// 3. Evidence and contradiction search
	var evidence, refuting search.Response
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		evidence = v.searcher.SearchMany(gctx, v.evidenceQueries(claim), nil, 0)
		return nil
	})
	if len(v.contradictionSources) > 0 {
		g.Go(func() error {
			refuting = v.searcher.SearchMany(gctx, v.contradictionQueries(claim), v.contradictionSources, contradictionLimit)
			return nil
		})
	}
	_ = g.Wait()

	result.SearchActions = append(result.SearchActions, evidence.Actions(model.StageEvidence)...)
	result.SearchActions = append(result.SearchActions, refuting.Actions(model.StageContradiction)...)
	if evidence.Partial || refuting.Partial {
		result.DataQuality = model.DataQualityPartial
	}

	// 4. Normalize and rerank
	candidates := Dedupe(v.normalizer.NormalizeAll(evidence.Records))
	result.EvidenceConsidered = len(candidates)
	ranked := v.reranker.Rerank(ctx, claim, candidates, v.threshold)
	if ranked.Degraded || v.lexical {
		result.RankingConfidence = model.RankingLow
	}

	supporting, contradictions := v.finder.split(ranked.Eligible)
	if len(refuting.Records) > 0 {
		counter := v.reranker.Rerank(ctx, claim, Dedupe(v.normalizer.NormalizeAll(refuting.Records)), v.threshold)
		if counter.Degraded {
			result.RankingConfidence = model.RankingLow
		}
		_, more := v.finder.split(counter.Eligible)
		contradictions = mergeContradictions(contradictions, more)
		supporting = withoutKeys(supporting, contradictions)
	}

	// 5. Aggregate
	replication := ReplicationStatus(supporting)
	result.ReplicationStatus = replication
	result.Contradictions = toContradictions(contradictions)
	return v.aggregator.Aggregate(score.Input{
		Claim:          claim,
		Eligible:       supporting,
		Unscored:       ranked.Unscored,
		Replication:    replication,
		Contradictions: result.Contradictions,
		Violations:     violations,
	})
}

// evidenceQueries returns the normalized claim plus a key-concept query
func (v *Verifier) evidenceQueries(claim model.Claim) []string {
	queries := []string{claim.Normalized}
	if concepts := v.conceptQuery(claim); concepts != "" && concepts != claim.Normalized {
		queries = append(queries, concepts)
	}
	return queries
}

// contradictionQueries pairs the key concepts with each refutation marker
func (v *Verifier) contradictionQueries(claim model.Claim) []string {
	base := v.conceptQuery(claim)
	if base == "" {
		base = claim.Normalized
	}
	queries := make([]string, 0, len(v.contradictionMarkers))
	for _, m := range v.contradictionMarkers {
		queries = append(queries, base+" "+m)
	}
	return queries
}

func (v *Verifier) conceptQuery(claim model.Claim) string {
	return strings.Join(v.concepts.ExtractCandidateTerms(claim.Text), " ")
}

func newResult(claim model.Claim, now time.Time) *model.ConfidenceResult {
	return &model.ConfidenceResult{
		OriginalClaim:        claim.Text,
		NormalizedClaim:      claim.Normalized,
		Drivers:              []string{},
		TopEvidence:          []model.EvidenceCandidate{},
		FabricatedTerms:      []string{},
		ReplicationStatus:    model.ReplicationNone,
		Contradictions:       []model.Contradiction{},
		SuggestedCorrections: []string{},
		SearchActions:        []model.SearchAction{},
		VerificationID:       uuid.NewString(),
		VerifiedAt:           now.UTC(),
		DataQuality:          model.DataQualityComplete,
		RankingConfidence:    model.RankingNormal,
	}
}

func applyOutcome(r *model.ConfidenceResult, o score.Outcome) {
	r.Classification = o.Classification
	r.ConfidenceScore = o.Score
	r.ConfidenceColor = o.Color
	r.Signals = o.Signals
	r.ExplanationPlain = o.Explanation
	if o.Drivers != nil {
		r.Drivers = o.Drivers
	}
	if o.TopEvidence != nil {
		r.TopEvidence = o.TopEvidence
	}
	if o.Corrections != nil {
		r.SuggestedCorrections = o.Corrections
	}
}

func hasSource(sources []model.SourceDatabase, db model.SourceDatabase) bool {
	for _, s := range sources {
		if s == db {
			return true
		}
	}
	return false
}
