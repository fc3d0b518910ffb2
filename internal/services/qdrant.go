package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
)

// ResumeChunk is one embedded piece of a resume.
type ResumeChunk struct {
	BatchID   uuid.UUID
	Position  int
	FileName  string
	Index     int
	Text      string
	Embedding []float32
}

type SearchResult struct {
	Position int
	FileName string
	Score    float32
	Text     string
}

// VectorStore holds resume chunks for semantic search within a batch.
type VectorStore interface {
	InitCollection(ctx context.Context, vectorSize uint64) error
	UpsertChunks(ctx context.Context, chunks []ResumeChunk) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, batchID uuid.UUID, limit int) ([]SearchResult, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	log            *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, log *zap.Logger) (VectorStore, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// The Go client speaks gRPC, which Qdrant serves on 6334.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		log:            logger.OrNop(log),
	}, nil
}

// InitCollection implements VectorStore.
func (q *qdrantService) InitCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertChunks implements VectorStore. Point ids are derived from the batch,
// file position and chunk index, so indexing the same resume twice
// overwrites it.
func (q *qdrantService) UpsertChunks(ctx context.Context, chunks []ResumeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		pointID := chunkPointID(c)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID.String()),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"batch_id":    c.BatchID.String(),
				"position":    c.Position,
				"file_name":   c.FileName,
				"chunk_index": c.Index,
				"text":        c.Text,
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// SearchSimilar implements VectorStore.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, batchID uuid.UUID, limit int) ([]SearchResult, error) {
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("batch_id", batchID.String()),
			},
		},
		Limit:       qdrant.PtrOf(uint64(limit)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		payload := point.Payload
		results = append(results, SearchResult{
			Position: int(payload["position"].GetIntegerValue()),
			FileName: payload["file_name"].GetStringValue(),
			Text:     payload["text"].GetStringValue(),
			Score:    point.Score,
		})
	}

	return results, nil
}

// DeleteBatch implements VectorStore.
func (q *qdrantService) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("batch_id", batchID.String()),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete batch points: %w", err)
	}

	return nil
}

func chunkPointID(c ResumeChunk) uuid.UUID {
	return uuid.NewSHA1(c.BatchID, []byte(fmt.Sprintf("%d#%d", c.Position, c.Index)))
}
