package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/repositories"
)

const (
	pollBatchLimit = 10
	queueSize      = 100
)

type Worker interface {
	BatchQueue
	Start(ctx context.Context)
	Stop()
}

type worker struct {
	batches      repositories.BatchRepository
	orchestrator BatchOrchestrator
	queue        chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
}

func NewWorker(
	batches repositories.BatchRepository,
	orchestrator BatchOrchestrator,
	concurrency int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		batches:      batches,
		orchestrator: orchestrator,
		queue:        make(chan uuid.UUID, queueSize),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		log:          logger.OrNop(log),
	}
}

// Start implements Worker. Batches already running are not interrupted by
// cancelling ctx; Stop waits for them.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processBatches(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollCreatedBatches(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping worker")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("worker stopped")
	})
}

// EnqueueBatch implements BatchQueue. It never blocks: the batch is already
// stored as created, so when the queue is full or the worker has stopped the
// poller picks it up later.
func (w *worker) EnqueueBatch(batchID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, batch left for the next poll", zap.String("batch_id", batchID.String()))
		return
	default:
	}

	select {
	case w.queue <- batchID:
		w.log.Debug("batch enqueued", zap.String("batch_id", batchID.String()))
	default:
		w.log.Warn("worker queue full, batch left for the next poll", zap.String("batch_id", batchID.String()))
	}
}

func (w *worker) processBatches(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			return
		case batchID := <-w.queue:
			err := w.orchestrator.Run(ctx, batchID)
			switch {
			case errors.Is(err, repositories.ErrBatchNotClaimable):
				log.Debug("batch already claimed", zap.String("batch_id", batchID.String()))
			case err != nil:
				log.Error("failed to process batch", zap.String("batch_id", batchID.String()), zap.Error(err))
			default:
				log.Info("batch done", zap.String("batch_id", batchID.String()))
			}
		}
	}
}

// pollCreatedBatches re-enqueues batches left in the created state, e.g.
// after a restart.
func (w *worker) pollCreatedBatches(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			created, err := w.batches.FindCreated(ctx, pollBatchLimit)
			if err != nil {
				w.log.Warn("failed to fetch created batches", zap.Error(err))
				continue
			}

			if len(created) > 0 {
				w.log.Info("found created batches", zap.Int("count", len(created)))
			}

			for _, batch := range created {
				w.EnqueueBatch(batch.ID)
			}
		}
	}
}
