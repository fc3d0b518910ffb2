package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeVectorStore struct {
	mu       sync.Mutex
	chunks   []ResumeChunk
	results  []SearchResult
	lastID   uuid.UUID
	lastSize int
}

func (f *fakeVectorStore) InitCollection(context.Context, uint64) error { return nil }

func (f *fakeVectorStore) UpsertChunks(_ context.Context, chunks []ResumeChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeVectorStore) SearchSimilar(_ context.Context, _ []float32, batchID uuid.UUID, limit int) ([]SearchResult, error) {
	f.lastID, f.lastSize = batchID, limit
	return f.results, nil
}

func (f *fakeVectorStore) DeleteBatch(context.Context, uuid.UUID) error { return nil }

func TestIndexResumeStoresChunksWithBatch(t *testing.T) {
	store := &fakeVectorStore{}
	indexer := NewResumeIndexer(fakeEmbedder{}, store, NewTextChunker(), nil)
	batchID := uuid.New()

	file := ScreeningFile{Position: 3, FileName: "jane.pdf"}
	require.NoError(t, indexer.IndexResume(context.Background(), batchID, file, resumeText))

	require.NotEmpty(t, store.chunks)
	for i, c := range store.chunks {
		assert.Equal(t, batchID, c.BatchID)
		assert.Equal(t, 3, c.Position)
		assert.Equal(t, "jane.pdf", c.FileName)
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Embedding)
	}
}

func TestIndexResumeEmbeddingFailure(t *testing.T) {
	store := &fakeVectorStore{}
	indexer := NewResumeIndexer(fakeEmbedder{err: errors.New("quota")}, store, NewTextChunker(), nil)

	err := indexer.IndexResume(context.Background(), uuid.New(), ScreeningFile{FileName: "jane.pdf"}, resumeText)
	assert.Error(t, err)
	assert.Empty(t, store.chunks)
}

func TestSearchCollapsesChunksPerFile(t *testing.T) {
	store := &fakeVectorStore{results: []SearchResult{
		{Position: 0, FileName: "a.pdf", Score: 0.9, Text: "Go and Kafka"},
		{Position: 0, FileName: "a.pdf", Score: 0.8, Text: "more Go"},
		{Position: 1, FileName: "b.pdf", Score: 0.7, Text: "Kafka streams"},
		{Position: 2, FileName: "c.pdf", Score: 0.6, Text: "Java"},
	}}
	indexer := NewResumeIndexer(fakeEmbedder{}, store, NewTextChunker(), nil)
	batchID := uuid.New()

	hits, err := indexer.Search(context.Background(), batchID, " kafka ", 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a.pdf", hits[0].FileName)
	assert.Equal(t, "Go and Kafka", hits[0].Snippet)
	assert.Equal(t, "b.pdf", hits[1].FileName)
	assert.Equal(t, batchID, store.lastID)
	assert.Equal(t, 6, store.lastSize)
}

func TestSearchKeepsSameNamedFilesApart(t *testing.T) {
	store := &fakeVectorStore{results: []SearchResult{
		{Position: 0, FileName: "resume.pdf", Score: 0.9, Text: "Go"},
		{Position: 2, FileName: "resume.pdf", Score: 0.8, Text: "Go and Rust"},
		{Position: 0, FileName: "resume.pdf", Score: 0.7, Text: "more Go"},
	}}
	indexer := NewResumeIndexer(fakeEmbedder{}, store, NewTextChunker(), nil)

	hits, err := indexer.Search(context.Background(), uuid.New(), "go", 10)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.Equal(t, 2, hits[1].Position)
	assert.Equal(t, "Go and Rust", hits[1].Snippet)
}

func TestChunkPointIDsAreKeyedByPosition(t *testing.T) {
	batchID := uuid.New()
	first := ResumeChunk{BatchID: batchID, Position: 0, FileName: "resume.pdf", Index: 0}
	second := ResumeChunk{BatchID: batchID, Position: 1, FileName: "resume.pdf", Index: 0}

	assert.NotEqual(t, chunkPointID(first), chunkPointID(second))
	assert.Equal(t, chunkPointID(first), chunkPointID(first))
}

func TestSearchRequiresQuery(t *testing.T) {
	indexer := NewResumeIndexer(fakeEmbedder{}, &fakeVectorStore{}, NewTextChunker(), nil)
	_, err := indexer.Search(context.Background(), uuid.New(), "  ", 5)
	assert.Error(t, err)
}
