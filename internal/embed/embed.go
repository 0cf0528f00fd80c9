// Package embed turns text into vectors for relevance scoring.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/Surjit27/Clairvox/internal/model"
)

// ErrEmbeddingUnavailable is returned when no vectors could be produced
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Embedder defines the interface for embedding backends
type Embedder interface {
	// Name returns the backend name
	Name() string

	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// IsLexical reports whether e scores word overlap instead of meaning.
// Such scores need a lower threshold and are never high-confidence.
func IsLexical(e Embedder) bool {
	l, ok := e.(interface{ Lexical() bool })
	return ok && l.Lexical()
}

// New creates an embedder based on configuration
func New(cfg model.EmbeddingConfig, client *http.Client) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIEmbedder(cfg, client)
	case "ollama":
		return NewOllamaEmbedder(cfg, client)
	case "hash", "":
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, hash)", cfg.Provider)
	}
}

// Cosine returns the cosine similarity of a and b clamped to [0,1].
// Mismatched or zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, sim))
}

// checkCount guards against backends returning fewer vectors than asked
func checkCount(got, want int) error {
	if got != want {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingUnavailable, got, want)
	}
	return nil
}
