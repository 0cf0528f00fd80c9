package worker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Surjit27/Clairvox/internal/model"
)

// Limiter keeps one token bucket per literature database. Callers queue for
// a token; nothing is dropped.
type Limiter struct {
	buckets  sync.Map // model.SourceDatabase -> *rate.Limiter
	fallback rate.Limit
	burst    int
}

// NewLimiter returns a limiter whose unconfigured databases get
// requestsPerSecond with the given burst (5 when burst is not positive).
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{fallback: rate.Limit(requestsPerSecond), burst: burst}
}

// Configure installs the per-database rates from cfg. Databases with no
// positive rate keep the fallback.
func (l *Limiter) Configure(cfg model.SourcesConfig) *Limiter {
	for _, db := range model.AllSources() {
		if sc := cfg.For(db); sc.Rate > 0 {
			l.SetRate(db, sc.Rate, sc.Burst)
		}
	}
	return l
}

// Wait blocks until db has a token or ctx ends.
func (l *Limiter) Wait(ctx context.Context, db model.SourceDatabase) error {
	return l.bucket(db).Wait(ctx)
}

// Allow takes a token for db if one is available right now.
func (l *Limiter) Allow(db model.SourceDatabase) bool {
	return l.bucket(db).Allow()
}

// SetRate replaces db's bucket. A non-positive burst uses the fallback burst.
func (l *Limiter) SetRate(db model.SourceDatabase, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.burst
	}
	l.buckets.Store(db, rate.NewLimiter(rate.Limit(requestsPerSecond), burst))
}

// Tighten slows db so requests are at least minInterval apart, as a
// robots.txt Crawl-delay demands. It never speeds a database up.
func (l *Limiter) Tighten(db model.SourceDatabase, minInterval time.Duration) {
	if minInterval <= 0 {
		return
	}
	b := l.bucket(db)
	if every := rate.Every(minInterval); every < b.Limit() {
		b.SetLimit(every)
		b.SetBurst(1)
	}
}

// Rate reports db's current limit.
func (l *Limiter) Rate(db model.SourceDatabase) rate.Limit {
	return l.bucket(db).Limit()
}

func (l *Limiter) bucket(db model.SourceDatabase) *rate.Limiter {
	if b, ok := l.buckets.Load(db); ok {
		return b.(*rate.Limiter)
	}
	b, _ := l.buckets.LoadOrStore(db, rate.NewLimiter(l.fallback, l.burst))
	return b.(*rate.Limiter)
}
