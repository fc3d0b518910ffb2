package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/config"
	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
	"alfredoptarigan/resume-screener/internal/services"
)

// Rebuilds the search index of one batch from the text samples stored with
// its results. Useful after enabling the index or recreating the collection.
//
//	go run ./scripts/index_batch.go -batch <id> [-reset]
func main() {
	batchFlag := flag.String("batch", "", "batch id to index")
	reset := flag.Bool("reset", false, "delete the batch's existing points first")
	flag.Parse()

	cfg := config.Load()

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	batchID, err := uuid.Parse(*batchFlag)
	if err != nil {
		log.Fatal("invalid -batch", zap.String("value", *batchFlag), zap.Error(err))
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY is required for embeddings")
	}

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	batch, err := repositories.NewBatchRepository(db).FindByID(ctx, batchID)
	if err != nil {
		log.Fatal("failed to load batch", zap.Error(err))
	}
	if batch.Status != models.BatchCompleted {
		log.Fatal("batch is not completed", zap.String("status", string(batch.Status)))
	}

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, log)
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}

	store, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}
	if err := store.InitCollection(ctx, services.EmbeddingSize); err != nil {
		log.Fatal("failed to initialize collection", zap.Error(err))
	}

	if *reset {
		if err := store.DeleteBatch(ctx, batchID); err != nil {
			log.Fatal("failed to reset batch points", zap.Error(err))
		}
		log.Info("existing points removed")
	}

	indexer := services.NewResumeIndexer(gemini, store, services.NewTextChunker(), log)

	indexed, skipped, failed := 0, 0, 0
	for _, r := range batch.Results {
		if !r.IsResume || r.ExtractedTextSample == "" {
			skipped++
			continue
		}

		file := services.ScreeningFile{Position: r.Position, FileName: r.FileName}
		if err := indexer.IndexResume(ctx, batchID, file, r.ExtractedTextSample); err != nil {
			log.Warn("failed to index resume", zap.String("file", r.FileName), zap.Error(err))
			failed++
			continue
		}
		indexed++
	}

	log.Info("index rebuilt",
		zap.String("batch_id", batchID.String()),
		zap.Int("indexed", indexed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))

	if failed > 0 {
		os.Exit(1)
	}
}
