package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"ANALYST_ADDR", "GEMINI_API_KEY", "OPENAI_API_KEY", "SERPER_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, ":8092", cfg.Server.Addr)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.LLM.MaxIterations)
	assert.Equal(t, 20*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "reports", cfg.Pipeline.OutputDir)
	assert.False(t, cfg.Pipeline.Concurrent)
	assert.Equal(t, "duckduckgo", cfg.SearchProvider())
}

func TestLoad_FileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "analyst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
  model: gpt-4o-mini
pipeline:
  concurrent: true
  max_parallel: 2
logging:
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 15, cfg.LLM.MaxIterations, "untouched keys keep their defaults")
	assert.True(t, cfg.Pipeline.Concurrent)
	assert.Equal(t, 2, cfg.Pipeline.MaxParallel)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANALYST_ADDR", ":9000")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("OPENAI_API_KEY", "o-key")
	t.Setenv("SERPER_API_KEY", "s-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
	assert.Equal(t, "s-key", cfg.Search.APIKey)
	assert.Equal(t, "serper", cfg.SearchProvider())
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{name: "unknown llm", yaml: "llm:\n  provider: llama\n", errMsg: "Config.LLM.Provider: oneof=gemini openai"},
		{name: "unknown search", yaml: "search:\n  provider: bing\n", errMsg: "Config.Search.Provider: oneof=serper duckduckgo"},
		{name: "too many results", yaml: "search:\n  results: 50\n", errMsg: "Config.Search.Results: lte=20"},
		{name: "bad log format", yaml: "logging:\n  format: xml\n", errMsg: "Config.Logging.Format"},
		{name: "malformed", yaml: "server: [", errMsg: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "analyst.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
