package embed

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/Surjit27/Clairvox/internal/normalize"
)

const defaultHashDimensions = 512

// HashEmbedder is an offline embedder using feature hashing of words and
// word bigrams. Similarity is lexical, not semantic.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given vector size
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Name returns the backend name
func (e *HashEmbedder) Name() string {
	return "hash"
}

// Lexical marks the vectors as word overlap rather than meaning
func (e *HashEmbedder) Lexical() bool {
	return true
}

// Embed never fails
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)

	var words []string
	for _, w := range normalize.Tokenize(text) {
		if !normalize.IsStopword(w) {
			words = append(words, stem(w))
		}
	}

	add := func(feature string, weight float32) {
		h := xxhash.Sum64String(feature)
		sign := float32(1)
		if h>>63 == 1 {
			sign = -1
		}
		v[h%uint64(e.dims)] += sign * weight
	}
	for i, w := range words {
		add(w, 1)
		if i > 0 {
			add(words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}

// stem strips a plural suffix so "cells" and "cell" share a feature
func stem(w string) string {
	switch {
	case len(w) > 4 && w[len(w)-3:] == "ies":
		return w[:len(w)-3] + "y"
	case len(w) > 3 && w[len(w)-1] == 's' && w[len(w)-2] != 's':
		return w[:len(w)-1]
	default:
		return w
	}
}
