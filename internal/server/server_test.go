package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Surjit27/Clairvox/internal/metrics"
	"github.com/Surjit27/Clairvox/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoVerifier returns a result carrying the claim
type echoVerifier struct {
	mu     sync.Mutex
	claims []string
}

func (e *echoVerifier) Verify(_ context.Context, claim string) *model.ConfidenceResult {
	e.mu.Lock()
	e.claims = append(e.claims, claim)
	e.mu.Unlock()
	return &model.ConfidenceResult{
		OriginalClaim:   claim,
		Classification:  model.ClassUnsupported,
		ConfidenceColor: model.ColorRed,
		Drivers:         []string{},
	}
}

func newTestServer(t *testing.T) (*Server, *echoVerifier) {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Server.MaxBatch = 3
	v := &echoVerifier{}
	return New(cfg, v, nil, metrics.New()), v
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestVerify(t *testing.T) {
	s, v := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/verify", `{"claim":"Sleep consolidates memory"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var r model.ConfidenceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, "Sleep consolidates memory", r.OriginalClaim)
	assert.Equal(t, model.ClassUnsupported, r.Classification)
	assert.Equal(t, []string{"Sleep consolidates memory"}, v.claims)
}

func TestVerify_BadRequest(t *testing.T) {
	s, v := newTestServer(t)

	for _, body := range []string{`{}`, `{"claim":"   "}`, `not json`} {
		w := do(t, s, http.MethodPost, "/v1/verify", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, v.claims)
}

func TestVerifyBatch(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/verify/batch", `{"claims":["first claim","second claim","third claim"]}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "first claim", resp.Results[0].OriginalClaim)
	assert.Equal(t, "third claim", resp.Results[2].OriginalClaim)
}

func TestVerifyBatch_Limits(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/verify/batch", `{"claims":["a","b","c","d"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BATCH_TOO_LARGE")

	w = do(t, s, http.MethodPost, "/v1/verify/batch", `{"claims":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyze(t *testing.T) {
	s, _ := newTestServer(t)

	body := `{"answer":"Regular aerobic exercise increases hippocampal volume in older adults. Is that true? Sleep deprivation impairs memory consolidation in healthy adults."}`
	w := do(t, s, http.MethodPost, "/v1/analyze", body)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Regular aerobic exercise increases hippocampal volume in older adults.", resp.Results[0].OriginalClaim)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	s.metrics.Verification(string(model.ClassSupported), string(model.DataQualityComplete), 0)

	w := do(t, s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clairvox_")
}
