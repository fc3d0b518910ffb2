package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screener/internal/config"
)

func openAIConfig(t *testing.T) *config.Config {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("INDEX_ENABLED", "false")
	t.Setenv("GEMINI_API_KEY", "")
	return config.Load()
}

func TestNewPipelineOpenAIWithoutIndex(t *testing.T) {
	cfg := openAIConfig(t)

	p, err := NewPipeline(context.Background(), cfg, nil, nil)
	require.NoError(t, err)

	assert.NotNil(t, p.Extractor)
	assert.NotNil(t, p.Screener)
	assert.Nil(t, p.Indexer)
}

func TestNewPipelineRejectsBadSettings(t *testing.T) {
	cfg := openAIConfig(t)
	cfg.Screening.Thresholds = "lenient"
	_, err := NewPipeline(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg = openAIConfig(t)
	cfg.LLM.Provider = "gemini"
	_, err = NewPipeline(context.Background(), cfg, nil, nil)
	assert.Error(t, err)

	cfg = openAIConfig(t)
	cfg.LLM.Provider = "anthropic"
	_, err = NewPipeline(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
