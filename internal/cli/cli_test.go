package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Surjit27/Clairvox/internal/model"
	"github.com/Surjit27/Clairvox/internal/worker"
)

func TestClaimFromArgs(t *testing.T) {
	claim, err := claimFromArgs([]string{"Sleep", "consolidates", "memory"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Sleep consolidates memory", claim)

	claim, err = claimFromArgs([]string{"-"}, strings.NewReader("  Caffeine improves reaction time\n"))
	require.NoError(t, err)
	assert.Equal(t, "Caffeine improves reaction time", claim)
}

func TestRegisterDefaults_EnvOverridesNestedKeys(t *testing.T) {
	v := viper.New()
	require.NoError(t, registerDefaults(v, model.DefaultConfig()))

	t.Setenv("CLAIRVOX_CACHE_BACKEND", "disk")
	t.Setenv("CLAIRVOX_SEARCH_TIMEOUT", "3s")
	t.Setenv("CLAIRVOX_SOURCES_ARXIV_ENABLED", "false")
	v.SetEnvPrefix("CLAIRVOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := model.DefaultConfig()
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "disk", cfg.Cache.Backend)
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
	assert.False(t, cfg.Sources.ArXiv.Enabled)
	assert.True(t, cfg.Sources.CrossRef.Enabled)
	assert.Equal(t, model.DefaultConfig().Contradiction.Sources, cfg.Contradiction.Sources)
	require.NoError(t, cfg.Validate())
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".clairvox", "config.yaml")

	require.NoError(t, writeDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Clairvox Configuration File"))

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, model.DefaultConfig().Rerank.Threshold, cfg.Rerank.Threshold)

	assert.Error(t, writeDefaultConfig(path), "existing file is never overwritten")
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Embedding.APIKey = "sk-secret"

	out := redact(cfg)

	assert.Equal(t, "********", out.Embedding.APIKey)
	assert.Empty(t, out.Cache.RedisPassword)
	assert.Equal(t, "sk-secret", cfg.Embedding.APIKey)
}

func TestBuildApp(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Backend = "none"
	cfg.Log.Level = "error"

	a, err := buildApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, a.verifier)
	assert.NotNil(t, a.metrics)

	cfg.Sources.CrossRef.Enabled = false
	cfg.Sources.EuropePMC.Enabled = false
	cfg.Sources.ArXiv.Enabled = false
	_, err = buildApp(cfg)
	assert.Error(t, err)
}

func TestWriteJSONLines(t *testing.T) {
	results := []*worker.ClaimResult{
		{Claim: "a", Result: &model.ConfidenceResult{OriginalClaim: "a", Classification: model.ClassSupported}},
		{Claim: "b", Error: assert.AnError},
		{Claim: "c", Result: &model.ConfidenceResult{OriginalClaim: "c", Classification: model.ClassUnsupported}},
	}

	var buf bytes.Buffer
	counts, failures, err := writeJSONLines(&buf, results)

	require.NoError(t, err)
	assert.Equal(t, 1, failures)
	assert.Equal(t, map[string]int{"Supported": 1, "Unsupported": 1}, counts)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"original_claim":"a"`)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "clairvox "+Version+"\n", buf.String())
}
