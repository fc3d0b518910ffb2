// Package app assembles the screening pipeline from configuration. It is
// shared by the API server and the screen CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

// Pipeline holds everything needed to run batches, minus persistence.
type Pipeline struct {
	Extractor services.TextExtractor
	Screener  services.ResumeScreener
	// Indexer is nil unless INDEX_ENABLED is set.
	Indexer services.ResumeIndexer
}

// NewPipeline builds the oracle, classifier and screener, plus the Qdrant
// index when enabled.
func NewPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	log = logger.OrNop(log)

	thresholds, err := services.ThresholdsByName(cfg.Screening.Thresholds)
	if err != nil {
		return nil, err
	}

	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
		if err != nil {
			return nil, err
		}
	}

	provider, err := newChatClient(cfg, gemini, log)
	if err != nil {
		return nil, err
	}

	chat := services.NewGuardedChatClient(provider, services.GuardConfig{
		Timeout:           cfg.LLM.Timeout,
		MaxAttempts:       cfg.LLM.RetryMaxAttempts,
		RetryDelay:        cfg.LLM.RetryInitialDelay,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Burst:             cfg.LLM.Burst,
		Breaker: services.BreakerSettings{
			Enabled:          cfg.Breaker.Enabled,
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			MinRequests:      cfg.Breaker.MinRequests,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
	}, log, m)

	oracle := services.NewOracle(chat, services.OracleOptions{
		Thresholds:  thresholds,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, log, m)

	classifier := services.NewDocumentClassifier(oracle, services.FallbackPolicy(cfg.Screening.ClassifierFallback), log, m)

	p := &Pipeline{
		Extractor: services.NewTextExtractor(log),
		Screener:  services.NewResumeScreener(classifier, oracle, log, m),
	}

	if cfg.Qdrant.Enabled {
		store, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
		if err != nil {
			return nil, err
		}
		if err := store.InitCollection(ctx, services.EmbeddingSize); err != nil {
			return nil, err
		}
		p.Indexer = services.NewResumeIndexer(gemini, store, services.NewTextChunker(), log)
		log.Info("resume index enabled", zap.String("collection", cfg.Qdrant.Collection))
	}

	return p, nil
}

// NewOrchestrator binds the pipeline to a batch store.
func (p *Pipeline) NewOrchestrator(
	cfg *config.Config,
	batches repositories.BatchRepository,
	storage services.StorageService,
	log *zap.Logger,
	m *metrics.Metrics,
) services.BatchOrchestrator {
	return services.NewBatchOrchestrator(
		batches,
		storage,
		p.Extractor,
		p.Screener,
		p.Indexer,
		cfg.Worker.ExtractConcurrency,
		log,
		m,
	)
}

func newChatClient(cfg *config.Config, gemini services.GeminiService, log *zap.Logger) (services.ChatClient, error) {
	switch cfg.LLM.Provider {
	case "openai":
		// The guard applies the per-call timeout; this one only bounds a stuck
		// connection.
		httpClient := &http.Client{Timeout: cfg.LLM.Timeout + cfg.LLM.Timeout/2}
		log.Info("using openai-compatible provider",
			zap.String("base_url", cfg.LLM.BaseURL),
			zap.String("model", cfg.LLM.Model))
		return services.NewOpenAIChatClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, httpClient, log), nil
	case "gemini":
		if gemini == nil {
			return nil, fmt.Errorf("gemini provider selected without GEMINI_API_KEY")
		}
		log.Info("using gemini provider", zap.String("model", gemini.Model()))
		return gemini, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}
