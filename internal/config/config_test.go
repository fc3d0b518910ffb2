package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "standard", cfg.Screening.Thresholds)
	assert.Equal(t, "accept", cfg.Screening.ClassifierFallback)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("SCORE_THRESHOLDS", "STRICT")
	t.Setenv("CLASSIFIER_FALLBACK", "reject")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("LLM_TIMEOUT", "not-a-duration")
	t.Setenv("INDEX_ENABLED", "true")

	cfg := Load()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "strict", cfg.Screening.Thresholds)
	assert.Equal(t, "reject", cfg.Screening.ClassifierFallback)
	assert.InDelta(t, 0.5, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Qdrant.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bedrock" }},
		{"gemini without key", func(c *Config) { c.LLM.Provider = "gemini"; c.Gemini.APIKey = "" }},
		{"bad thresholds", func(c *Config) { c.Screening.Thresholds = "lenient" }},
		{"bad fallback", func(c *Config) { c.Screening.ClassifierFallback = "maybe" }},
		{"index without embeddings", func(c *Config) { c.Qdrant.Enabled = true; c.Gemini.APIKey = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
