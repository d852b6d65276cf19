package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/pipeline"
	"github.com/zivvlabs/token-triage/internal/repository"
)

// StageProcessor runs the stage handler for a working record.
type StageProcessor interface {
	Process(ctx context.Context, rec *pipeline.WorkingRecord) *pipeline.WorkingRecord
}

// OutcomeSink records a completed execution; the persister implements it.
type OutcomeSink interface {
	Persist(ctx context.Context, job entity.Job, rec *pipeline.WorkingRecord) error
}

// Metrics receives worker counters; the ops package implements it.
type Metrics interface {
	JobsClaimed(n int)
	JobProcessed(stage int, outcome string)
	BatchDuration(d time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) JobsClaimed(int)             {}
func (NopMetrics) JobProcessed(int, string)    {}
func (NopMetrics) BatchDuration(time.Duration) {}

// Worker drives the pipeline: claim a batch, fan out over it with bounded
// concurrency, isolate per-job failures, idle when the queue is empty.
type Worker struct {
	jobs    repository.JobRepository
	tokens  repository.TokenRepository
	proc    StageProcessor
	sink    OutcomeSink
	cfg     *common.WorkerConfig
	metrics Metrics
	log     *slog.Logger
}

func New(
	jobs repository.JobRepository,
	tokens repository.TokenRepository,
	proc StageProcessor,
	sink OutcomeSink,
	cfg *common.WorkerConfig,
	metrics Metrics,
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Worker{
		jobs:    jobs,
		tokens:  tokens,
		proc:    proc,
		sink:    sink,
		cfg:     cfg,
		metrics: metrics,
		log:     logger,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started",
		"poll_interval", w.cfg.PollInterval,
		"batch_size", w.cfg.BatchSize,
		"concurrency", w.cfg.Concurrency,
	)
	for {
		if err := ctx.Err(); err != nil {
			w.log.Info("worker stopped")
			return err
		}

		jobs, err := w.jobs.ClaimBatch(ctx, w.cfg.BatchSize)
		if err != nil {
			w.log.Error("claim batch failed", "error", err)
			w.sleep(ctx)
			continue
		}
		if len(jobs) == 0 {
			w.sleep(ctx)
			continue
		}

		w.metrics.JobsClaimed(len(jobs))
		w.log.Info("claimed jobs", "count", len(jobs))

		start := time.Now()
		w.runBatch(ctx, jobs)
		elapsed := time.Since(start)
		w.metrics.BatchDuration(elapsed)
		w.log.Info("batch done", "batch_size", len(jobs), "elapsed", elapsed)
	}
}

// sleep waits one poll interval; returns false if the context ended first.
func (w *Worker) sleep(ctx context.Context) bool {
	t := time.NewTimer(w.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runBatch processes claimed jobs with bounded concurrency. Jobs in a batch
// are independent: each (token_id, stage) was atomically moved out of pending
// by the claim, and a failure in one job never aborts its siblings.
func (w *Worker) runBatch(ctx context.Context, jobs []entity.Job) {
	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(job entity.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			w.runJob(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (w *Worker) runJob(ctx context.Context, job entity.Job) {
	outcome := "error"
	defer func() { w.metrics.JobProcessed(job.Stage, outcome) }()

	token, err := w.tokens.GetByID(ctx, job.TokenID)
	if errors.Is(err, common.ErrNotFound) {
		// A missing snapshot cannot self-resolve; fail terminally instead of
		// burning retries.
		w.log.Error("token snapshot missing", "job_id", job.ID, "token_id", job.TokenID, "error", err)
		if mErr := w.jobs.MarkFailed(ctx, job.ID, "token not found: "+err.Error()); mErr != nil {
			w.log.Error("mark failed errored", "job_id", job.ID, "error", mErr)
		}
		outcome = "missing_token"
		return
	}
	if err != nil {
		// Anything else (a connection blip, a timeout) is transient; send the
		// job down the retry path with the real message.
		w.log.Error("token lookup failed", "job_id", job.ID, "token_id", job.TokenID, "error", err)
		rec := pipeline.NewWorkingRecord(job, nil)
		rec.Status = pipeline.OutcomeError
		rec.ErrorMsg = err.Error()
		if pErr := w.sink.Persist(ctx, job, rec); pErr != nil {
			w.log.Error("persist outcome failed", "job_id", job.ID, "stage", job.Stage, "error", pErr)
			outcome = "persist_error"
		}
		return
	}

	rec := w.process(ctx, job, token)
	outcome = string(rec.Status)

	if err := w.sink.Persist(ctx, job, rec); err != nil {
		// The row stays in processing until an operator or a future claim
		// sweep intervenes; surface loudly.
		w.log.Error("persist outcome failed", "job_id", job.ID, "stage", job.Stage, "error", err)
		outcome = "persist_error"
	}
}

// process runs the stage pipeline, converting a panic into an error outcome
// so a crash in one job's handler follows the normal retry path.
func (w *Worker) process(ctx context.Context, job entity.Job, token *entity.Token) (rec *pipeline.WorkingRecord) {
	rec = pipeline.NewWorkingRecord(job, token)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job panicked", "job_id", job.ID, "stage", job.Stage, "panic", r)
			rec.Status = pipeline.OutcomeError
			rec.ErrorMsg = fmt.Sprintf("panic: %v", r)
		}
	}()
	return w.proc.Process(ctx, rec)
}
