// Package fabrication flags claims built on technical terms that no
// literature database has ever heard of.
package fabrication

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/search"
)

// Searcher is the part of search.Searcher the detector needs
type Searcher interface {
	Sources() []model.SourceDatabase
	SearchSource(ctx context.Context, db model.SourceDatabase, query string, limit int) search.SourceResult
}

// Report is the outcome of checking one claim
type Report struct {
	Findings []model.FabricationFinding
	Actions  []model.SearchAction
	Partial  bool // A source failed, so some terms could not be decided
}

// FabricatedTerms lists the terms confirmed as fabricated
func (r Report) FabricatedTerms() []string {
	var out []string
	for _, f := range r.Findings {
		if f.Fabricated {
			out = append(out, f.Term)
		}
	}
	return out
}

// Detector checks claim terms against every configured database
type Detector struct {
	searcher     Searcher
	extractor    TermExtractor
	maxEditRatio float64
	limit        int
	logger       *zap.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithExtractor replaces the heuristic term extractor
func WithExtractor(e TermExtractor) Option {
	return func(d *Detector) { d.extractor = e }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// NewDetector creates a detector
func NewDetector(s Searcher, cfg model.FabricationConfig, opts ...Option) *Detector {
	d := &Detector{
		searcher:     s,
		extractor:    HeuristicExtractor{MaxTerms: cfg.MaxTerms},
		maxEditRatio: cfg.MaxEditRatio,
		limit:        cfg.ResultsPerQuery,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check looks up every candidate term of the claim. Terms are checked
// concurrently, and each term's sources are queried concurrently. One
// fabricated term settles the claim, so it cancels the lookups still
// running for the other terms; those come back undecided.
func (d *Detector) Check(ctx context.Context, claim model.Claim) Report {
	terms := d.extractor.ExtractCandidateTerms(claim.Text)
	sources := d.searcher.Sources()
	if len(terms) == 0 || len(sources) == 0 {
		return Report{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([][]search.SourceResult, len(terms))
	findings := make([]model.FabricationFinding, len(terms))

	var g errgroup.Group
	for i, term := range terms {
		g.Go(func() error {
			findings[i], results[i] = d.checkTerm(ctx, term, sources)
			if findings[i].Fabricated {
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Findings: findings}
	for i := range terms {
		for _, res := range results[i] {
			report.Actions = append(report.Actions, res.Action(model.StageFabrication))
			if res.Failed() {
				report.Partial = true
			}
		}
	}

	for _, f := range findings {
		if f.Fabricated {
			d.logger.Info("fabricated term",
				zap.String("term", f.Term), zap.Int("sources", len(f.SearchEvidence)))
		}
	}
	return report
}

// checkTerm queries every source for one term. The first source with a
// hit cancels the rest: the term is known to exist.
func (d *Detector) checkTerm(ctx context.Context, term string, sources []model.SourceDatabase) (model.FabricationFinding, []search.SourceResult) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newMatcher(term, d.maxEditRatio)
	query := `"` + term + `"`

	results := make([]search.SourceResult, len(sources))
	hits := make([]int, len(sources))

	var g errgroup.Group
	for i, db := range sources {
		g.Go(func() error {
			res := d.searcher.SearchSource(ctx, db, query, d.limit)
			results[i] = res
			if res.Err == nil {
				hits[i] = m.hits(res.Records)
				if hits[i] > 0 {
					cancel()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	finding := model.FabricationFinding{Term: term}
	decided := true
	for i, res := range results {
		ts := model.TermSearch{
			Source:      res.Source,
			Query:       res.Query,
			ResultCount: len(res.Records),
			FuzzyHits:   hits[i],
			Status:      model.ActionOK,
		}
		switch {
		case res.Abandoned:
			ts.Status = model.ActionAbandoned
			decided = false
		case res.Err != nil:
			ts.Status = model.ActionFailed
			ts.Error = res.Err.Error()
			decided = false
		}
		finding.HitCount += hits[i]
		finding.SearchEvidence = append(finding.SearchEvidence, ts)
	}
	finding.Fabricated = decided && finding.HitCount == 0
	return finding, results
}
