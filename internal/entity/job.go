package entity

import "time"

// JobStatus is the durable state of an analysis job row.
type JobStatus int16

const (
	JobStatusPending    JobStatus = 0
	JobStatusProcessing JobStatus = 1
	JobStatusCompleted  JobStatus = 2
	JobStatusFailed     JobStatus = 3
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	}
	return "unknown"
}

// Pipeline stages, in claim-priority order.
const (
	StageFilter   = 1
	StageClassify = 2
	StageDeepDive = 3
	MaxStage      = StageDeepDive
)

// Job is one row of the analysis_jobs table, keyed by (token_id, stage).
// At most one non-completed row exists per key; the guarded upsert in the
// repository enforces this.
type Job struct {
	ID        int64     `json:"id"`
	TokenID   int64     `json:"token_id"`
	Stage     int       `json:"stage"`
	Status    JobStatus `json:"status"`
	Retries   int       `json:"retries"`
	LastError *string   `json:"last_error,omitempty"`
	NextRunAt time.Time `json:"next_run_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
