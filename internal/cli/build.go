package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Surjit27/Clairvox/internal/cache"
	"github.com/Surjit27/Clairvox/internal/embed"
	"github.com/Surjit27/Clairvox/internal/logging"
	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/pipeline"
	"github.com/Surjit27/Clairvox/internal/search"
	"github.com/Surjit27/Clairvox/internal/source"
	"github.com/Surjit27/Clairvox/internal/util"
)

// app holds the components shared by every command
type app struct {
	cfg        model.Config
	logger     *zap.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	verifier   *pipeline.Verifier
}

// newApp loads configuration and wires the verification stack
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg)
}

func buildApp(cfg model.Config) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	m := metrics.New()

	client, err := util.NewHTTPClient(cfg.Search.Proxy, cfg.Search.Timeout)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	clients, err := source.NewClients(cfg, client)
	if err != nil {
		return nil, fmt.Errorf("sources: %w", err)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no literature source enabled")
	}

	opts := []search.Option{
		search.WithLimiter(search.NewLimiter(cfg.Sources)),
		search.WithTimeout(cfg.Search.Timeout),
		search.WithLimit(cfg.Search.ResultsPerSource),
		search.WithLogger(logger.Named("search")),
		search.WithMetrics(m),
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	if c != nil {
		if p, ok := c.(cache.Pinger); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := p.Ping(ctx); err != nil {
				logger.Warn("shared cache unreachable, lookups will miss",
					zap.String("backend", cfg.Cache.Backend), zap.Error(err))
			}
			cancel()
		}
		opts = append(opts, search.WithCache(c, cfg.Cache.TTL))
	}
	if cfg.Search.RespectRobots {
		opts = append(opts, search.WithRobots(util.NewRobotsChecker(client, cfg.Search.UserAgent)))
	}
	searcher := search.New(clients, opts...)

	embedder, err := embed.New(cfg.Embedding, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}

	logger.Debug("verifier ready",
		zap.Int("sources", len(clients)),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("embedding", embedder.Name()),
		zap.Float64("threshold", cfg.Rerank.ThresholdFor(embed.IsLexical(embedder))))

	verifier := pipeline.New(cfg, searcher, embedder,
		pipeline.WithLogger(logger.Named("verify")),
		pipeline.WithMetrics(m))

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		httpClient: client,
		verifier:   verifier,
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
