package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
)

// claimingOrchestrator claims the batch and reports it, so the poller does
// not pick it up twice.
type claimingOrchestrator struct {
	batches repositories.BatchRepository
	ran     chan uuid.UUID
}

func (o *claimingOrchestrator) Run(ctx context.Context, batchID uuid.UUID) error {
	if err := o.batches.Claim(ctx, batchID); err != nil {
		return err
	}
	o.ran <- batchID
	return nil
}

func TestWorkerRunsEnqueuedBatches(t *testing.T) {
	batches := repositories.NewMemoryBatchRepository()
	orch := &claimingOrchestrator{batches: batches, ran: make(chan uuid.UUID, 4)}
	w := NewWorker(batches, orch, 2, time.Hour, nil)

	batch := &models.BatchJob{ID: uuid.New(), TotalCount: 1}
	require.NoError(t, batches.Create(context.Background(), batch))

	w.Start(context.Background())
	defer w.Stop()

	w.EnqueueBatch(batch.ID)

	select {
	case id := <-orch.ran:
		assert.Equal(t, batch.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not processed")
	}
}

func TestWorkerPollsCreatedBatches(t *testing.T) {
	batches := repositories.NewMemoryBatchRepository()
	orch := &claimingOrchestrator{batches: batches, ran: make(chan uuid.UUID, 4)}

	batch := &models.BatchJob{ID: uuid.New(), TotalCount: 1}
	require.NoError(t, batches.Create(context.Background(), batch))

	w := NewWorker(batches, orch, 1, 10*time.Millisecond, nil)
	w.Start(context.Background())
	defer w.Stop()

	select {
	case id := <-orch.ran:
		assert.Equal(t, batch.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("created batch was not picked up by the poller")
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	w := NewWorker(repositories.NewMemoryBatchRepository(), &claimingOrchestrator{}, 1, time.Hour, nil)
	w.Start(context.Background())

	w.Stop()
	w.Stop()

	// After Stop an enqueue must not block.
	done := make(chan struct{})
	go func() {
		w.EnqueueBatch(uuid.New())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EnqueueBatch blocked after Stop")
	}
}

func TestWorkerEnqueueDoesNotBlockWhenQueueIsFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	w := NewWorker(repositories.NewMemoryBatchRepository(), &claimingOrchestrator{}, 1, time.Hour, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueSize+5; i++ {
			w.EnqueueBatch(uuid.New())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("EnqueueBatch blocked on a full queue")
	}
	assert.Len(t, w.(*worker).queue, queueSize)
}
