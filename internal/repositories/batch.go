package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-screener/internal/models"
)

// ErrBatchNotClaimable is returned when a batch is no longer in the created
// state, e.g. another worker already picked it up.
var ErrBatchNotClaimable = errors.New("batch is not waiting to be processed")

type BatchRepository interface {
	Create(ctx context.Context, batch *models.BatchJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BatchJob, error)
	FindCreated(ctx context.Context, limit int) ([]models.BatchJob, error)
	Claim(ctx context.Context, id uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error
	AppendResult(ctx context.Context, batchID uuid.UUID, result *models.MatchResult) error
	Complete(ctx context.Context, batchID uuid.UUID, averageScore float64, completedAt time.Time) error
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *models.BatchJob) error {
	if err := r.db.WithContext(ctx).Omit("Results").Create(batch).Error; err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// FindByID loads the batch with its results. Results of a completed batch are
// ranked by score (ties keep submission order); a running batch lists them in
// processing order.
func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.BatchJob, error) {
	db := r.db.WithContext(ctx)

	var batch models.BatchJob
	if err := db.Where("id = ?", id).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find batch: %w", err)
	}

	order := "position ASC"
	if batch.Status == models.BatchCompleted {
		order = "match_score DESC, position ASC"
	}

	var results []models.MatchResult
	if err := db.Where("batch_id = ?", id).Order(order).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to load batch results: %w", err)
	}
	batch.Results = results

	return &batch, nil
}

func (r *batchRepository) FindCreated(ctx context.Context, limit int) ([]models.BatchJob, error) {
	var batches []models.BatchJob
	err := r.db.WithContext(ctx).
		Where("status = ?", models.BatchCreated).
		Order("created_at ASC").
		Limit(limit).
		Find(&batches).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find created batches: %w", err)
	}

	return batches, nil
}

// Claim moves a batch from created to processing. The conditional update
// guarantees a single runner per batch.
func (r *batchRepository) Claim(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.BatchJob{}).
		Where("id = ? AND status = ?", id, models.BatchCreated).
		Updates(map[string]interface{}{
			"status":     models.BatchProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to claim batch: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrBatchNotClaimable
	}

	return nil
}

// Release hands a processing batch back to the created state so it can be
// claimed again. Results already stored are kept.
func (r *batchRepository) Release(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.BatchJob{}).
		Where("id = ? AND status = ?", id, models.BatchProcessing).
		Updates(map[string]interface{}{
			"status":     models.BatchCreated,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to release batch: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("batch %s is not processing: %w", id, ErrNotFound)
	}

	return nil
}

// AppendResult stores one result and bumps processed_count in the same
// transaction, so observers never see a count without its result.
func (r *batchRepository) AppendResult(ctx context.Context, batchID uuid.UUID, result *models.MatchResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result.BatchID = batchID
		if result.ID == uuid.Nil {
			result.ID = uuid.New()
		}

		if err := tx.Create(result).Error; err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}

		updated := tx.Model(&models.BatchJob{}).
			Where("id = ? AND status = ?", batchID, models.BatchProcessing).
			Updates(map[string]interface{}{
				"processed_count": gorm.Expr("processed_count + 1"),
				"updated_at":      time.Now(),
			})

		if updated.Error != nil {
			return fmt.Errorf("failed to update progress: %w", updated.Error)
		}

		if updated.RowsAffected == 0 {
			return fmt.Errorf("batch %s is not processing: %w", batchID, ErrNotFound)
		}

		return nil
	})
}

func (r *batchRepository) Complete(ctx context.Context, batchID uuid.UUID, averageScore float64, completedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.BatchJob{}).
		Where("id = ? AND status = ?", batchID, models.BatchProcessing).
		Updates(map[string]interface{}{
			"status":        models.BatchCompleted,
			"average_score": averageScore,
			"completed_at":  completedAt,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to complete batch: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("batch %s is not processing: %w", batchID, ErrNotFound)
	}

	return nil
}
