package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/pipeline"
	"github.com/zivvlabs/token-triage/internal/repository"
)

type fakeJobs struct {
	mu      sync.Mutex
	batches [][]entity.Job
	claims  int
	failed  map[int64]string
}

func newFakeJobs(batches ...[]entity.Job) *fakeJobs {
	return &fakeJobs{batches: batches, failed: map[int64]string{}}
}

func (f *fakeJobs) ClaimBatch(_ context.Context, _ int) ([]entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims++
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeJobs) MarkFailed(_ context.Context, jobID int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = message
	return nil
}

func (f *fakeJobs) CompleteTx(context.Context, repository.DBTX, int64) error { return nil }
func (f *fakeJobs) RecordFailureTx(context.Context, repository.DBTX, int64, string, entity.JobStatus, int, time.Duration) error {
	return nil
}
func (f *fakeJobs) UpsertPendingTx(context.Context, repository.DBTX, int64, int) error { return nil }

type fakeTokens struct {
	tokens map[int64]*entity.Token
	err    error // returned instead of ErrNotFound when set
}

func (f *fakeTokens) GetByID(_ context.Context, id int64) (*entity.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.tokens[id]; ok {
		return t, nil
	}
	return nil, common.ErrNotFound
}

type fakeProc struct {
	panicJobID int64
}

func (f *fakeProc) Process(_ context.Context, rec *pipeline.WorkingRecord) *pipeline.WorkingRecord {
	if rec.JobID == f.panicJobID {
		panic("handler blew up")
	}
	rec.Status = pipeline.OutcomePassed
	return rec
}

type fakeSink struct {
	mu   sync.Mutex
	recs map[int64]*pipeline.WorkingRecord
}

func newFakeSink() *fakeSink {
	return &fakeSink{recs: map[int64]*pipeline.WorkingRecord{}}
}

func (f *fakeSink) Persist(_ context.Context, job entity.Job, rec *pipeline.WorkingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs[job.ID] = rec
	return nil
}

func workerConfig() *common.WorkerConfig {
	return &common.WorkerConfig{
		PollInterval: 5 * time.Millisecond,
		BatchSize:    10,
		Concurrency:  2,
		MaxRetries:   5,
		RetryBase:    time.Second,
	}
}

func TestRunJobMissingTokenFailsTerminally(t *testing.T) {
	jobs := newFakeJobs()
	sink := newFakeSink()
	w := New(jobs, &fakeTokens{tokens: map[int64]*entity.Token{}}, &fakeProc{}, sink, workerConfig(), nil, nil)

	w.runJob(context.Background(), entity.Job{ID: 10, TokenID: 99, Stage: entity.StageFilter})

	msg, ok := jobs.failed[10]
	if !ok || !strings.Contains(msg, "token not found") {
		t.Fatalf("expected terminal failure mentioning 'token not found', got %v", jobs.failed)
	}
	if len(sink.recs) != 0 {
		t.Fatal("missing token must bypass the persister")
	}
}

func TestRunJobTransientLookupErrorRetries(t *testing.T) {
	lookupErr := errors.New("get token: connection reset by peer")
	jobs := newFakeJobs()
	sink := newFakeSink()
	w := New(jobs, &fakeTokens{err: lookupErr}, &fakeProc{}, sink, workerConfig(), nil, nil)

	w.runJob(context.Background(), entity.Job{ID: 10, TokenID: 99, Stage: entity.StageFilter})

	if len(jobs.failed) != 0 {
		t.Fatalf("transient lookup failure must not go terminal, got %v", jobs.failed)
	}
	rec, ok := sink.recs[10]
	if !ok {
		t.Fatal("transient lookup failure should reach the persister as an error outcome")
	}
	if rec.Status != pipeline.OutcomeError {
		t.Fatalf("outcome = %q, want error", rec.Status)
	}
	if rec.ErrorMsg != lookupErr.Error() {
		t.Fatalf("error message = %q, want the lookup error preserved", rec.ErrorMsg)
	}
}

func TestRunBatchIsolatesPanics(t *testing.T) {
	tok := &entity.Token{ID: 1, Contract: "0xabc"}
	tokens := &fakeTokens{tokens: map[int64]*entity.Token{1: tok}}
	batch := []entity.Job{
		{ID: 1, TokenID: 1, Stage: entity.StageFilter},
		{ID: 2, TokenID: 1, Stage: entity.StageFilter},
		{ID: 3, TokenID: 1, Stage: entity.StageFilter},
	}
	jobs := newFakeJobs()
	sink := newFakeSink()
	w := New(jobs, tokens, &fakeProc{panicJobID: 2}, sink, workerConfig(), nil, nil)

	w.runBatch(context.Background(), batch)

	if len(sink.recs) != 3 {
		t.Fatalf("all jobs should reach the persister, got %d", len(sink.recs))
	}
	if sink.recs[2].Status != pipeline.OutcomeError {
		t.Fatalf("panicked job outcome = %q, want error", sink.recs[2].Status)
	}
	if sink.recs[2].ErrorMsg == "" {
		t.Error("panic message should be preserved")
	}
	for _, id := range []int64{1, 3} {
		if sink.recs[id].Status != pipeline.OutcomePassed {
			t.Errorf("sibling job %d affected by panic: %q", id, sink.recs[id].Status)
		}
	}
}

func TestRunIdlesOnEmptyQueueUntilCancelled(t *testing.T) {
	jobs := newFakeJobs()
	w := New(jobs, &fakeTokens{}, &fakeProc{}, newFakeSink(), workerConfig(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run should return the context error, got %v", err)
	}

	jobs.mu.Lock()
	claims := jobs.claims
	jobs.mu.Unlock()
	if claims < 2 {
		t.Fatalf("worker should keep polling while idle, claims = %d", claims)
	}
}

func TestRunProcessesClaimedBatch(t *testing.T) {
	tok := &entity.Token{ID: 5, Contract: "0xdef"}
	tokens := &fakeTokens{tokens: map[int64]*entity.Token{5: tok}}
	jobs := newFakeJobs([]entity.Job{{ID: 7, TokenID: 5, Stage: entity.StageFilter}})
	sink := newFakeSink()
	w := New(jobs, tokens, &fakeProc{}, sink, workerConfig(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_ = w.Run(ctx)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	rec, ok := sink.recs[7]
	if !ok {
		t.Fatal("claimed job never reached the persister")
	}
	if rec.Status != pipeline.OutcomePassed || rec.Token != tok {
		t.Fatalf("record wrong: status=%q token=%v", rec.Status, rec.Token)
	}
}
