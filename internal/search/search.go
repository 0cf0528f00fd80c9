// Package search fans a query out to the literature databases with
// per-source rate limiting, caching and partial-failure tolerance.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Surjit27/Clairvox/internal/cache"
	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/source"
	"github.com/Surjit27/Clairvox/internal/util"
	"github.com/Surjit27/Clairvox/internal/worker"
)

var (
	// ErrRobotsDisallowed is returned when robots.txt forbids the endpoint
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	// ErrUnknownSource is returned for a database with no configured client
	ErrUnknownSource = errors.New("no client for source")
)

// SourceResult is the outcome of one (source, query) lookup
type SourceResult struct {
	Source    model.SourceDatabase
	Query     string
	Records   []source.RawRecord
	Cached    bool
	Abandoned bool // Cancelled by the caller because the answer was no longer needed
	Err       error
	Elapsed   time.Duration
}

// Failed reports whether the source was unavailable
func (r SourceResult) Failed() bool {
	return r.Err != nil && !r.Abandoned
}

// Action converts the result into an audit log entry
func (r SourceResult) Action(stage model.SearchStage) model.SearchAction {
	a := model.SearchAction{
		Stage:   stage,
		Source:  r.Source,
		Query:   r.Query,
		Results: len(r.Records),
		Cached:  r.Cached,
		Status:  model.ActionOK,
	}
	switch {
	case r.Abandoned:
		a.Status = model.ActionAbandoned
	case r.Err != nil:
		a.Status = model.ActionFailed
		a.Error = r.Err.Error()
	}
	return a
}

// Response merges the results of one or more queries across sources
type Response struct {
	Records []source.RawRecord // Query order, then source order
	Results []SourceResult
	Partial bool // At least one source failed
}

// Actions returns the audit entries of every lookup
func (r Response) Actions(stage model.SearchStage) []model.SearchAction {
	out := make([]model.SearchAction, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, res.Action(stage))
	}
	return out
}

// Searcher queries literature databases
type Searcher struct {
	clients  map[model.SourceDatabase]source.Client
	order    []model.SourceDatabase
	cache    cache.Cache
	cacheTTL time.Duration
	limiter  *worker.Limiter
	robots   *util.RobotsChecker
	timeout  time.Duration
	limit    int
	logger   *zap.Logger
	metrics  *metrics.Metrics
	flights  singleflight.Group
}

// Option configures a Searcher
type Option func(*Searcher)

// WithCache enables the shared query cache
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Searcher) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithLimiter sets the per-source rate limiter
func WithLimiter(l *worker.Limiter) Option {
	return func(s *Searcher) { s.limiter = l }
}

// WithRobots enables robots.txt checks against each endpoint
func WithRobots(r *util.RobotsChecker) Option {
	return func(s *Searcher) { s.robots = r }
}

// WithTimeout bounds each database request
func WithTimeout(d time.Duration) Option {
	return func(s *Searcher) { s.timeout = d }
}

// WithLimit sets the default number of results requested per source
func WithLimit(n int) Option {
	return func(s *Searcher) { s.limit = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// WithMetrics records request and cache metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) { s.metrics = m }
}

// New creates a searcher over the given clients
func New(clients []source.Client, opts ...Option) *Searcher {
	s := &Searcher{
		clients: make(map[model.SourceDatabase]source.Client, len(clients)),
		timeout: 10 * time.Second,
		limit:   10,
		logger:  zap.NewNop(),
	}
	for _, c := range clients {
		if _, dup := s.clients[c.Source()]; !dup {
			s.order = append(s.order, c.Source())
		}
		s.clients[c.Source()] = c
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = worker.NewLimiter(10, 5)
	}
	return s
}

// NewLimiter builds a limiter with each database's configured rate
func NewLimiter(cfg model.SourcesConfig) *worker.Limiter {
	return worker.NewLimiter(1, 1).Configure(cfg)
}

// Sources lists the configured databases in query order
func (s *Searcher) Sources() []model.SourceDatabase {
	return append([]model.SourceDatabase(nil), s.order...)
}

// Search queries every given source concurrently. It never fails: an
// unavailable source is logged, excluded and flagged in the response.
func (s *Searcher) Search(ctx context.Context, query string, sources []model.SourceDatabase) Response {
	return s.SearchMany(ctx, []string{query}, sources, 0)
}

// SearchMany runs several queries against several sources concurrently.
// A limit of 0 uses the searcher default.
func (s *Searcher) SearchMany(ctx context.Context, queries []string, sources []model.SourceDatabase, limit int) Response {
	if sources == nil {
		sources = s.order
	}

	results := make([]SourceResult, len(queries)*len(sources))
	var g errgroup.Group
	for qi, q := range queries {
		for si, db := range sources {
			idx := qi*len(sources) + si
			g.Go(func() error {
				results[idx] = s.SearchSource(ctx, db, q, limit)
				return nil
			})
		}
	}
	_ = g.Wait()

	var resp Response
	resp.Results = results
	for _, r := range results {
		if r.Failed() {
			resp.Partial = true
			continue
		}
		resp.Records = append(resp.Records, r.Records...)
	}
	return resp
}

// SearchSource queries a single source. Cached payloads are decoded exactly
// like live ones, so a hit is indistinguishable from a fresh response.
func (s *Searcher) SearchSource(ctx context.Context, db model.SourceDatabase, query string, limit int) SourceResult {
	start := time.Now()
	result := SourceResult{Source: db, Query: query}
	if limit <= 0 {
		limit = s.limit
	}

	client, ok := s.clients[db]
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrUnknownSource, db)
		return result
	}

	// One entry per (source, query): every lookup fetches the larger of the
	// caller's and the default page, then trims to what the caller asked for.
	key := cache.CacheKey(db, query)
	page := max(limit, s.limit)

	if records, hit := s.fromCache(client, key, query); hit {
		s.metrics.CacheLookup(true)
		result.Records = firstN(records, limit)
		result.Cached = true
		result.Elapsed = time.Since(start)
		return result
	}
	s.metrics.CacheLookup(false)

	v, err, shared := s.flights.Do(key, func() (interface{}, error) {
		return s.fetch(ctx, client, key, query, page)
	})
	// A shared flight cancelled by another caller says nothing about ours
	if err != nil && shared && ctx.Err() == nil && errors.Is(err, context.Canceled) {
		v, err = s.fetch(ctx, client, key, query, page)
	}

	result.Elapsed = time.Since(start)
	if err != nil {
		result.Err = err
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			result.Abandoned = true
			s.metrics.SourceRequest(string(db), "abandoned", result.Elapsed)
			s.logger.Debug("source query abandoned",
				zap.String("source", string(db)), zap.String("query", query))
			return result
		}
		s.metrics.SourceRequest(string(db), "failed", result.Elapsed)
		s.logger.Warn("source unavailable",
			zap.String("source", string(db)),
			zap.String("query", query),
			zap.Duration("elapsed", result.Elapsed),
			zap.Error(err))
		return result
	}

	s.metrics.SourceRequest(string(db), "ok", result.Elapsed)
	result.Records = firstN(v.([]source.RawRecord), limit)
	return result
}

func firstN(records []source.RawRecord, n int) []source.RawRecord {
	if n > 0 && len(records) > n {
		return records[:n:n]
	}
	return records
}

func (s *Searcher) fromCache(client source.Client, key, query string) ([]source.RawRecord, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	records, err := client.Decode(payload, query)
	if err != nil {
		_ = s.cache.Delete(key)
		s.logger.Warn("discarding undecodable cache entry",
			zap.String("source", string(client.Source())), zap.Error(err))
		return nil, false
	}
	return records, true
}

func (s *Searcher) fetch(ctx context.Context, client source.Client, key, query string, limit int) ([]source.RawRecord, error) {
	name := string(client.Source())

	if s.robots != nil {
		allowed, delay, err := s.robots.CanFetch(ctx, client.Endpoint())
		if err != nil {
			s.logger.Debug("robots.txt unavailable", zap.String("source", name), zap.Error(err))
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, client.Endpoint())
		}
		s.limiter.Tighten(client.Source(), delay)
	}

	if err := s.limiter.Wait(ctx, client.Source()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := client.Fetch(callCtx, query, limit)
	if err != nil {
		return nil, err
	}
	records, err := client.Decode(payload, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(key, payload, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("source", name), zap.Error(err))
		}
	}
	return records, nil
}
