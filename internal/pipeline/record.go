package pipeline

import (
	"github.com/zivvlabs/token-triage/internal/entity"
)

// Outcome is the terminal status of one job execution.
type Outcome string

const (
	// OutcomePassed means the stage succeeded; the job completes and the
	// next stage may be enqueued.
	OutcomePassed Outcome = "passed"
	// OutcomeFiltered is a deliberate business rejection, not an error. The
	// job completes and the pipeline terminates for this token.
	OutcomeFiltered Outcome = "filtered"
	// OutcomeError sends the job down the retry path.
	OutcomeError Outcome = "error"
)

// WorkingRecord is the ephemeral per-execution record. It is built fresh when
// a job is claimed, flows through exactly the handlers for its stage, and is
// the sole input to the outcome persister. It is never stored directly.
type WorkingRecord struct {
	JobID   int64
	TokenID int64
	Stage   int
	Token   *entity.Token

	Classification *entity.Classification
	Report         string
	Signal         *entity.OnchainSignal

	Status   Outcome
	ErrorMsg string
}

// NewWorkingRecord builds the record for a claimed job and its snapshot.
func NewWorkingRecord(job entity.Job, token *entity.Token) *WorkingRecord {
	return &WorkingRecord{
		JobID:   job.ID,
		TokenID: job.TokenID,
		Stage:   job.Stage,
		Token:   token,
	}
}

func (r *WorkingRecord) fail(msg string) *WorkingRecord {
	r.Status = OutcomeError
	r.ErrorMsg = msg
	return r
}
