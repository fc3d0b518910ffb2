package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/models"
)

const (
	indexChunkSize    = 1000
	indexChunkOverlap = 200
	searchSnippetLen  = 240
	maxSearchLimit    = 50
	// EmbeddingSize is the dimension of the Gemini text embedding model.
	EmbeddingSize = 768
)

// ErrIndexDisabled is returned by search when no index is configured.
var ErrIndexDisabled = errors.New("resume index is disabled")

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ResumeIndexer makes the accepted resumes of a batch searchable.
type ResumeIndexer interface {
	IndexResume(ctx context.Context, batchID uuid.UUID, file ScreeningFile, text string) error
	Search(ctx context.Context, batchID uuid.UUID, query string, limit int) ([]models.SearchHit, error)
}

type resumeIndexer struct {
	embedder Embedder
	store    VectorStore
	chunker  TextChunker
	log      *zap.Logger
}

func NewResumeIndexer(embedder Embedder, store VectorStore, chunker TextChunker, log *zap.Logger) ResumeIndexer {
	return &resumeIndexer{
		embedder: embedder,
		store:    store,
		chunker:  chunker,
		log:      logger.OrNop(log),
	}
}

// IndexResume stores the chunks of one file. Files are identified by their
// position in the batch, so uploads sharing a name stay apart.
func (r *resumeIndexer) IndexResume(ctx context.Context, batchID uuid.UUID, file ScreeningFile, text string) error {
	pieces := r.chunker.ChunkText(text, indexChunkSize, indexChunkOverlap)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]ResumeChunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := r.embedder.GenerateEmbedding(ctx, piece)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %s: %w", i, file.FileName, err)
		}
		chunks = append(chunks, ResumeChunk{
			BatchID:   batchID,
			Position:  file.Position,
			FileName:  file.FileName,
			Index:     i,
			Text:      piece,
			Embedding: embedding,
		})
	}

	if err := r.store.UpsertChunks(ctx, chunks); err != nil {
		return err
	}

	r.log.Debug("resume indexed",
		zap.String("batch_id", batchID.String()),
		zap.Int("position", file.Position),
		zap.String("file", file.FileName),
		zap.Int("chunks", len(chunks)))

	return nil
}

// Search returns the best matching chunk per file, best first.
func (r *resumeIndexer) Search(ctx context.Context, batchID uuid.UUID, query string, limit int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = 10
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	// Over-fetch so collapsing chunks per file still fills the page.
	results, err := r.store.SearchSimilar(ctx, embedding, batchID, limit*3)
	if err != nil {
		return nil, err
	}

	hits := make([]models.SearchHit, 0, limit)
	seen := make(map[int]struct{})
	for _, res := range results {
		if _, ok := seen[res.Position]; ok {
			continue
		}
		seen[res.Position] = struct{}{}
		hits = append(hits, models.SearchHit{
			Position: res.Position,
			FileName: res.FileName,
			Score:    res.Score,
			Snippet:  FormatSearchSnippet(res.Text, searchSnippetLen),
		})
		if len(hits) == limit {
			break
		}
	}

	return hits, nil
}
