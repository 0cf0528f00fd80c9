package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/model"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{-1, 0}), "negative similarity clamps to 0")
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{
		"optogenetic stimulation of engram cells in mice",
		"Optogenetic stimulation of engram cell in mice",
		"engram cells and memory recall in mice",
		"galaxy rotation curves and dark matter",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 4)
	assert.Len(t, vecs[0], 256)

	assert.InDelta(t, 1.0, Cosine(vecs[0], vecs[1]), 1e-6, "case and plural insensitive")
	assert.Greater(t, Cosine(vecs[0], vecs[2]), Cosine(vecs[0], vecs[3]))
	assert.InDelta(t, 0.0, Cosine(vecs[0], vecs[3]), 0.3)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	a, _ := NewHashEmbedder(0).Embed(context.Background(), []string{"memory engram"})
	b, _ := NewHashEmbedder(0).Embed(context.Background(), []string{"memory engram"})
	assert.Equal(t, a, b)
	assert.Len(t, a[0], defaultHashDimensions)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Len(t, req.Input, 2)

		// Out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}]}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(model.EmbeddingConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(model.EmbeddingConfig{APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
}

func TestOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(model.EmbeddingConfig{}, nil)
	assert.Error(t, err)
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		resp := ollamaEmbedResponse{Model: req.Model}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:   "nomic-embed-text",
		BaseURL: server.URL + "/",
	}, nil)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}

func TestOllamaEmbedder_ShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[[1,2]]}`))
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(model.EmbeddingConfig{Model: "m", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x", "y"})
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestOllamaEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model not found"}`))
	}))
	defer server.Close()

	e, err := NewOllamaEmbedder(model.EmbeddingConfig{Model: "m", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNew(t *testing.T) {
	e, err := New(model.EmbeddingConfig{Provider: "hash", Dimensions: 64}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Name())

	e, err = New(model.EmbeddingConfig{Provider: "ollama", Model: "m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ollama", e.Name())

	_, err = New(model.EmbeddingConfig{Provider: "openai"}, nil)
	assert.Error(t, err)

	_, err = New(model.EmbeddingConfig{Provider: "bert"}, nil)
	assert.Error(t, err)
}
