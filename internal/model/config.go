package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all runtime settings for a Clairvox verifier
type Config struct {
	Search        SearchConfig        `yaml:"search" mapstructure:"search"`
	Sources       SourcesConfig       `yaml:"sources" mapstructure:"sources"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Fabrication   FabricationConfig   `yaml:"fabrication" mapstructure:"fabrication"`
	Rules         RulesConfig         `yaml:"rules" mapstructure:"rules"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Rerank        RerankConfig        `yaml:"rerank" mapstructure:"rerank"`
	Contradiction ContradictionConfig `yaml:"contradiction" mapstructure:"contradiction"`
	Worker        WorkerConfig        `yaml:"worker" mapstructure:"worker"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// SearchConfig controls outbound literature queries
type SearchConfig struct {
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	ResultsPerSource int           `yaml:"results_per_source" mapstructure:"results_per_source" validate:"min=1,max=100"`
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	Mailto           string        `yaml:"mailto" mapstructure:"mailto"` // CrossRef polite pool contact
	Proxy            string        `yaml:"proxy" mapstructure:"proxy"`   // Empty uses environment proxy settings
	MaxBodyBytes     int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	RespectRobots    bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// SourcesConfig configures each literature database
type SourcesConfig struct {
	CrossRef  SourceConfig `yaml:"crossref" mapstructure:"crossref"`
	EuropePMC SourceConfig `yaml:"europepmc" mapstructure:"europepmc"`
	ArXiv     SourceConfig `yaml:"arxiv" mapstructure:"arxiv"`
}

// SourceConfig configures one literature database
type SourceConfig struct {
	Enabled bool    `yaml:"enabled" mapstructure:"enabled"`
	BaseURL string  `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	Rate    float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"` // Requests per second
	Burst   int     `yaml:"burst" mapstructure:"burst" validate:"min=1"`
}

// For returns the settings of a database
func (s SourcesConfig) For(db SourceDatabase) SourceConfig {
	switch db {
	case SourceCrossRef:
		return s.CrossRef
	case SourceEuropePMC:
		return s.EuropePMC
	case SourceArXiv:
		return s.ArXiv
	default:
		return SourceConfig{}
	}
}

// Enabled lists the enabled databases in fixed order
func (s SourcesConfig) Enabled() []SourceDatabase {
	var out []SourceDatabase
	for _, db := range AllSources() {
		if s.For(db).Enabled {
			out = append(out, db)
		}
	}
	return out
}

// CacheConfig selects and configures the query cache
type CacheConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend" validate:"oneof=none memory disk layered redis"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string        `yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db" validate:"min=0"`
	RedisPrefix   string        `yaml:"redis_prefix" mapstructure:"redis_prefix"`
	RedisTimeout  time.Duration `yaml:"redis_timeout" mapstructure:"redis_timeout" validate:"gte=0"`
}

// FabricationConfig controls fabricated term detection
type FabricationConfig struct {
	Enabled         bool    `yaml:"enabled" mapstructure:"enabled"`
	MaxTerms        int     `yaml:"max_terms" mapstructure:"max_terms" validate:"min=1,max=20"`
	MaxEditRatio    float64 `yaml:"max_edit_ratio" mapstructure:"max_edit_ratio" validate:"gte=0,lt=1"`
	ResultsPerQuery int     `yaml:"results_per_query" mapstructure:"results_per_query" validate:"min=1,max=100"`
}

// RulesConfig adds user-defined domain rules
type RulesConfig struct {
	Custom []CustomRule `yaml:"custom" mapstructure:"custom" validate:"dive"`
}

// CustomRule is a pattern rule loaded from configuration
type CustomRule struct {
	ID       string `yaml:"id" mapstructure:"id" validate:"required"`
	Domain   string `yaml:"domain" mapstructure:"domain"`
	Severity string `yaml:"severity" mapstructure:"severity" validate:"oneof=warning critical"`
	Pattern  string `yaml:"pattern" mapstructure:"pattern" validate:"required"`
	Message  string `yaml:"message" mapstructure:"message"`
}

// EmbeddingConfig selects the embedding backend used for reranking
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider" mapstructure:"provider" validate:"oneof=openai ollama hash"`
	Model      string        `yaml:"model" mapstructure:"model"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	Dimensions int           `yaml:"dimensions" mapstructure:"dimensions" validate:"min=0"` // Hash embedder only
}

// RerankConfig controls relevance filtering
type RerankConfig struct {
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=1"`
	HashThreshold float64 `yaml:"hash_threshold" mapstructure:"hash_threshold" validate:"gte=0,lte=1"`
}

// ThresholdFor returns the relevance cut-off for an embedding backend.
// Lexical hash vectors put on-topic papers around 0.4 where semantic
// models give 0.8, so they get their own calibration.
func (c RerankConfig) ThresholdFor(lexical bool) float64 {
	if lexical && c.HashThreshold > 0 {
		return c.HashThreshold
	}
	return c.Threshold
}

// ContradictionConfig controls the refutation search
type ContradictionConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Sources []string `yaml:"sources" mapstructure:"sources"`
	Markers []string `yaml:"markers" mapstructure:"markers" validate:"dive,required"`
}

// WorkerConfig controls batch verification
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=64"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	MaxBatch     int           `yaml:"max_batch" mapstructure:"max_batch" validate:"min=1"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Search: SearchConfig{
			Timeout:          10 * time.Second,
			ResultsPerSource: 10,
			UserAgent:        "Clairvox/0.3 (+https://github.com/Surjit27/Clairvox)",
			MaxBodyBytes:     5 * 1024 * 1024,
			RespectRobots:    false,
		},
		Sources: SourcesConfig{
			CrossRef: SourceConfig{
				Enabled: true,
				BaseURL: "https://api.crossref.org/works",
				Rate:    10,
				Burst:   5,
			},
			EuropePMC: SourceConfig{
				Enabled: true,
				BaseURL: "https://www.ebi.ac.uk/europepmc/webservices/rest/search",
				Rate:    10,
				Burst:   5,
			},
			ArXiv: SourceConfig{
				Enabled: true,
				BaseURL: "https://export.arxiv.org/api/query",
				Rate:    0.34, // arXiv asks for one request every three seconds
				Burst:   1,
			},
		},
		Cache: CacheConfig{
			Backend:      "memory",
			TTL:          24 * time.Hour,
			Dir:          "",
			RedisPrefix:  "clairvox:",
			RedisTimeout: 2 * time.Second,
		},
		Fabrication: FabricationConfig{
			Enabled:         true,
			MaxTerms:        6,
			MaxEditRatio:    0.2,
			ResultsPerQuery: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:   "hash",
			Model:      "",
			Timeout:    30 * time.Second,
			Dimensions: 512,
		},
		Rerank: RerankConfig{
			Threshold:     0.75,
			HashThreshold: 0.3,
		},
		Contradiction: ContradictionConfig{
			Enabled: true,
			Sources: []string{string(SourceEuropePMC), string(SourceCrossRef)},
			Markers: []string{"no evidence", "debunked", "failed to replicate"},
		},
		Worker: WorkerConfig{
			Concurrency: 4,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBatch:     50,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, name := range c.Contradiction.Sources {
		if _, err := ParseSource(name); err != nil {
			return fmt.Errorf("invalid config: contradiction.sources: %w", err)
		}
	}
	return nil
}
