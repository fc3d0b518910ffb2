package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/resume-screener/internal/logger"
	"alfredoptarigan/resume-screener/internal/metrics"
	"alfredoptarigan/resume-screener/internal/models"
	"alfredoptarigan/resume-screener/internal/repositories"
)

// UploadedFile is one resume as received from a client.
type UploadedFile struct {
	FileName string
	Data     []byte
}

type SubmitBatchInput struct {
	JobID          string
	RequesterEmail string
	Files          []UploadedFile
	// Wait runs the batch to completion before returning.
	Wait bool
}

// BatchQueue hands a created batch to whatever runs it.
type BatchQueue interface {
	EnqueueBatch(batchID uuid.UUID)
}

type BatchService interface {
	Submit(ctx context.Context, in SubmitBatchInput) (*models.BatchJob, error)
}

type batchService struct {
	jobs         repositories.JobRepository
	batches      repositories.BatchRepository
	storage      StorageService
	orchestrator BatchOrchestrator
	queue        BatchQueue
	log          *zap.Logger
	metrics      *metrics.Metrics
}

// NewBatchService builds the submission side. queue may be nil when every
// submission sets Wait.
func NewBatchService(
	jobs repositories.JobRepository,
	batches repositories.BatchRepository,
	storage StorageService,
	orchestrator BatchOrchestrator,
	queue BatchQueue,
	log *zap.Logger,
	m *metrics.Metrics,
) BatchService {
	return &batchService{
		jobs:         jobs,
		batches:      batches,
		storage:      storage,
		orchestrator: orchestrator,
		queue:        queue,
		log:          logger.OrNop(log),
		metrics:      m,
	}
}

// Submit validates the request, stores the files and creates the batch.
// Every rejection happens before anything is stored.
func (s *batchService) Submit(ctx context.Context, in SubmitBatchInput) (*models.BatchJob, error) {
	job, err := s.authorize(ctx, in)
	if err != nil {
		return nil, err
	}

	batch := &models.BatchJob{
		ID:             uuid.New(),
		JobID:          job.ID,
		JobTitle:       job.Title,
		JobDescription: job.Description,
		RequestedBy:    strings.TrimSpace(in.RequesterEmail),
		Status:         models.BatchCreated,
		TotalCount:     len(in.Files),
	}

	for _, f := range in.Files {
		storedName, err := s.storage.SaveBytes(f.Data, f.FileName, batch.ID)
		if err != nil {
			s.discard(batch.Files)
			return nil, fmt.Errorf("failed to store %s: %w", f.FileName, err)
		}
		batch.Files = append(batch.Files, models.BatchFile{FileName: f.FileName, StoredName: storedName})
	}

	if err := s.batches.Create(ctx, batch); err != nil {
		s.discard(batch.Files)
		return nil, err
	}

	s.metrics.BatchEvent("created")
	s.log.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("files", batch.TotalCount))

	if !in.Wait && s.queue != nil {
		s.queue.EnqueueBatch(batch.ID)
		return batch, nil
	}

	if err := s.orchestrator.Run(ctx, batch.ID); err != nil {
		return nil, err
	}
	return s.batches.FindByID(ctx, batch.ID)
}

func (s *batchService) authorize(ctx context.Context, in SubmitBatchInput) (*models.Job, error) {
	if len(in.Files) == 0 {
		return nil, ErrNoFiles
	}
	if strings.TrimSpace(in.JobID) == "" {
		return nil, ErrMissingJob
	}
	requester := strings.TrimSpace(in.RequesterEmail)
	if requester == "" {
		return nil, ErrMissingIdentity
	}

	jobID, err := uuid.Parse(strings.TrimSpace(in.JobID))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid job id %q", ErrJobNotFound, in.JobID)
	}

	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	if !strings.EqualFold(job.OwnerEmail, requester) {
		return nil, ErrUnauthorized
	}

	return job, nil
}

func (s *batchService) discard(files []models.BatchFile) {
	for _, f := range files {
		if err := s.storage.DeleteFile(f.StoredName); err != nil {
			s.log.Warn("failed to remove stored file", zap.String("file", f.StoredName), zap.Error(err))
		}
	}
}

// BatchOrchestrator drives one batch from created to completed.
type BatchOrchestrator interface {
	Run(ctx context.Context, batchID uuid.UUID) error
}

const (
	persistAttempts     = 4
	defaultPersistDelay = 500 * time.Millisecond
)

type batchOrchestrator struct {
	batches            repositories.BatchRepository
	storage            StorageService
	extractor          TextExtractor
	screener           ResumeScreener
	indexer            ResumeIndexer
	extractConcurrency int
	persistDelay       time.Duration
	log                *zap.Logger
	metrics            *metrics.Metrics
}

// NewBatchOrchestrator builds the runner. indexer may be nil.
func NewBatchOrchestrator(
	batches repositories.BatchRepository,
	storage StorageService,
	extractor TextExtractor,
	screener ResumeScreener,
	indexer ResumeIndexer,
	extractConcurrency int,
	log *zap.Logger,
	m *metrics.Metrics,
) BatchOrchestrator {
	if extractConcurrency < 1 {
		extractConcurrency = 1
	}
	return &batchOrchestrator{
		batches:            batches,
		storage:            storage,
		extractor:          extractor,
		screener:           screener,
		indexer:            indexer,
		extractConcurrency: extractConcurrency,
		persistDelay:       defaultPersistDelay,
		log:                logger.OrNop(log),
		metrics:            m,
	}
}

// batchProgress is the state of one Run. Only the Run that created it
// touches it.
type batchProgress struct {
	total    int
	results  []models.MatchResult
	scoreSum int
}

func newBatchProgress(total int) *batchProgress {
	return &batchProgress{total: total, results: make([]models.MatchResult, 0, total)}
}

func (p *batchProgress) record(result models.MatchResult) {
	p.results = append(p.results, result)
	p.scoreSum += result.MatchScore
}

func (p *batchProgress) processed() int { return len(p.results) }

// averageScore is the mean over every result, errors and rejections included.
func (p *batchProgress) averageScore() float64 {
	if len(p.results) == 0 {
		return 0
	}
	return float64(p.scoreSum) / float64(len(p.results))
}

type extraction struct {
	text string
	err  error
}

// Run claims the batch and processes its files in submission order. Text
// extraction runs ahead in parallel; classification and scoring are
// sequential so oracle calls are serialized and progress is a total order.
// Once claimed, the run ignores cancellation of ctx.
//
// Files that already have a stored result, left by an earlier run that was
// released, are not screened again. When a store write keeps failing the
// batch is released back to created and the poller picks it up later.
func (o *batchOrchestrator) Run(ctx context.Context, batchID uuid.UUID) error {
	batch, err := o.batches.FindByID(ctx, batchID)
	if err != nil {
		return err
	}

	if err := o.batches.Claim(ctx, batchID); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	log := o.log.With(zap.String("batch_id", batchID.String()))
	o.metrics.BatchEvent("claimed")
	started := time.Now()

	progress := newBatchProgress(len(batch.Files))
	done := make(map[int]bool, len(batch.Results))
	for _, res := range batch.Results {
		done[res.Position] = true
		progress.record(res)
	}

	pending := make([]int, 0, len(batch.Files))
	for i := range batch.Files {
		if !done[i] {
			pending = append(pending, i)
		}
	}

	log.Info("batch processing started",
		zap.Int("files", len(batch.Files)),
		zap.Int("already_processed", progress.processed()))

	extractions, ready := o.extractAll(batch.Files, pending)

	for _, i := range pending {
		f := batch.Files[i]
		<-ready[i]
		file := ScreeningFile{Position: i, FileName: f.FileName}

		var result models.MatchResult
		if ex := extractions[i]; ex.err != nil {
			result = o.screener.ErrorResult(file, ex.err)
		} else {
			result = o.screener.ScreenText(ctx, batch.JobDescription, file, ex.text)
		}

		err := o.persist(log, "append result", func() error {
			return o.batches.AppendResult(ctx, batchID, &result)
		})
		if err != nil {
			return o.release(ctx, log, batchID, fmt.Errorf("failed to record result for %s: %w", f.FileName, err))
		}
		progress.record(result)

		log.Info("batch progress",
			zap.Int("processed", progress.processed()),
			zap.Int("total", progress.total),
			zap.String("file", f.FileName),
			zap.String("status", string(result.Status)))

		if result.IsResume && o.indexer != nil {
			if err := o.indexer.IndexResume(ctx, batchID, file, extractions[i].text); err != nil {
				log.Warn("failed to index resume", zap.String("file", f.FileName), zap.Error(err))
			}
		}
	}

	average := progress.averageScore()
	err = o.persist(log, "complete batch", func() error {
		return o.batches.Complete(ctx, batchID, average, time.Now())
	})
	if err != nil {
		return o.release(ctx, log, batchID, err)
	}

	o.metrics.BatchEvent("completed")
	log.Info("batch completed",
		zap.Int("processed", progress.processed()),
		zap.Float64("average_score", average),
		zap.Duration("took", time.Since(started)))

	for _, f := range batch.Files {
		if err := o.storage.DeleteFile(f.StoredName); err != nil {
			log.Warn("failed to remove stored file", zap.String("file", f.StoredName), zap.Error(err))
		}
	}

	return nil
}

// persist retries a store write with linear backoff.
func (o *batchOrchestrator) persist(log *zap.Logger, op string, write func() error) error {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = write(); err == nil {
			return nil
		}
		if attempt < persistAttempts {
			log.Warn("store write failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			time.Sleep(time.Duration(attempt) * o.persistDelay)
		}
	}
	return err
}

// release returns the batch to created after cause stopped the run. Stored
// files are kept for the next run.
func (o *batchOrchestrator) release(ctx context.Context, log *zap.Logger, batchID uuid.UUID, cause error) error {
	err := o.persist(log, "release batch", func() error {
		return o.batches.Release(ctx, batchID)
	})
	if err != nil {
		log.Error("failed to release batch", zap.Error(err))
		return errors.Join(cause, err)
	}

	o.metrics.BatchEvent("released")
	log.Warn("batch released for a later run", zap.Error(cause))
	return cause
}

// extractAll starts extracting the pending files with bounded parallelism.
// ready[i] is closed once extractions[i] is set.
func (o *batchOrchestrator) extractAll(files []models.BatchFile, pending []int) ([]extraction, []chan struct{}) {
	extractions := make([]extraction, len(files))
	ready := make([]chan struct{}, len(files))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	var g errgroup.Group
	g.SetLimit(o.extractConcurrency)

	go func() {
		for _, i := range pending {
			g.Go(func() error {
				defer close(ready[i])
				extractions[i] = o.extract(files[i])
				return nil
			})
		}
		_ = g.Wait()
	}()

	return extractions, ready
}

func (o *batchOrchestrator) extract(f models.BatchFile) extraction {
	data, err := o.storage.Read(f.StoredName)
	if err != nil {
		return extraction{err: &ExtractionError{FileName: f.FileName, Err: err}}
	}

	content, err := o.extractor.Extract(f.FileName, data)
	if err != nil {
		return extraction{err: err}
	}

	return extraction{text: content.Text}
}
