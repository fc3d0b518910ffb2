package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-screener/internal/models"
)

// The in-memory repositories back the offline CLI and tests. They follow the
// same state rules as the gorm repositories.

type memoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.Job
}

func NewMemoryJobRepository() JobRepository {
	return &memoryJobRepository{jobs: make(map[uuid.UUID]models.Job)}
}

func (r *memoryJobRepository) Create(_ context.Context, job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := time.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	r.jobs[job.ID] = *job
	return nil
}

func (r *memoryJobRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &job, nil
}

type memoryBatchRepository struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]*models.BatchJob
}

func NewMemoryBatchRepository() BatchRepository {
	return &memoryBatchRepository{batches: make(map[uuid.UUID]*models.BatchJob)}
}

func (r *memoryBatchRepository) Create(_ context.Context, batch *models.BatchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = models.BatchCreated
	}
	now := time.Now()
	batch.CreatedAt, batch.UpdatedAt = now, now

	stored := copyBatch(batch)
	stored.Results = nil
	r.batches[batch.ID] = stored
	return nil
}

func (r *memoryBatchRepository) FindByID(_ context.Context, id uuid.UUID) (*models.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	batch, ok := r.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}

	out := copyBatch(batch)
	if out.Status == models.BatchCompleted {
		models.RankResults(out.Results)
	}
	return out, nil
}

func (r *memoryBatchRepository) FindCreated(_ context.Context, limit int) ([]models.BatchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var created []models.BatchJob
	for _, batch := range r.batches {
		if batch.Status == models.BatchCreated {
			created = append(created, *copyBatch(batch))
		}
	}

	sort.Slice(created, func(i, j int) bool {
		return created[i].CreatedAt.Before(created[j].CreatedAt)
	})
	if limit > 0 && len(created) > limit {
		created = created[:limit]
	}
	return created, nil
}

func (r *memoryBatchRepository) Claim(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok || batch.Status != models.BatchCreated {
		return ErrBatchNotClaimable
	}
	batch.Status = models.BatchProcessing
	batch.UpdatedAt = time.Now()
	return nil
}

func (r *memoryBatchRepository) Release(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[id]
	if !ok || batch.Status != models.BatchProcessing {
		return fmt.Errorf("batch %s is not processing: %w", id, ErrNotFound)
	}
	batch.Status = models.BatchCreated
	batch.UpdatedAt = time.Now()
	return nil
}

func (r *memoryBatchRepository) AppendResult(_ context.Context, batchID uuid.UUID, result *models.MatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[batchID]
	if !ok || batch.Status != models.BatchProcessing {
		return fmt.Errorf("batch %s is not processing: %w", batchID, ErrNotFound)
	}

	result.BatchID = batchID
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	batch.Results = append(batch.Results, copyResult(*result))
	batch.ProcessedCount++
	batch.UpdatedAt = time.Now()
	return nil
}

func (r *memoryBatchRepository) Complete(_ context.Context, batchID uuid.UUID, averageScore float64, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch, ok := r.batches[batchID]
	if !ok || batch.Status != models.BatchProcessing {
		return fmt.Errorf("batch %s is not processing: %w", batchID, ErrNotFound)
	}

	batch.Status = models.BatchCompleted
	batch.AverageScore = averageScore
	batch.CompletedAt = &completedAt
	batch.UpdatedAt = time.Now()
	return nil
}

func copyBatch(b *models.BatchJob) *models.BatchJob {
	out := *b
	out.Files = append([]models.BatchFile(nil), b.Files...)
	out.Results = make([]models.MatchResult, 0, len(b.Results))
	for _, res := range b.Results {
		out.Results = append(out.Results, copyResult(res))
	}
	if b.CompletedAt != nil {
		completedAt := *b.CompletedAt
		out.CompletedAt = &completedAt
	}
	return &out
}

func copyResult(r models.MatchResult) models.MatchResult {
	r.MatchingSkills = append([]string(nil), r.MatchingSkills...)
	r.MissingSkills = append([]string(nil), r.MissingSkills...)
	r.Strengths = append([]string(nil), r.Strengths...)
	r.Recommendations = append([]string(nil), r.Recommendations...)
	return r
}
