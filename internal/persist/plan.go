package persist

import (
	"time"

	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/pipeline"
)

// FailurePlan is the durable transition for an errored execution.
type FailurePlan struct {
	Status  entity.JobStatus
	Retries int
	Delay   time.Duration
}

// PlanFailure computes the retry transition: linear backoff (retries * base)
// up to maxRetries, then terminal failure. The delay grows strictly with each
// consecutive failure.
func PlanFailure(prevRetries, maxRetries int, base time.Duration) FailurePlan {
	retries := prevRetries + 1
	if retries > maxRetries {
		return FailurePlan{Status: entity.JobStatusFailed, Retries: retries}
	}
	return FailurePlan{
		Status:  entity.JobStatusPending,
		Retries: retries,
		Delay:   time.Duration(retries) * base,
	}
}

// NextStage decides whether a follow-on job should be enqueued for this
// outcome, and for which stage. Filtered outcomes never advance; the last
// stage never advances; promotion into the deep dive additionally requires
// the classifier's vibe score to clear the configured threshold.
func NextStage(rec *pipeline.WorkingRecord, vibeThreshold int) (int, bool) {
	if rec.Status != pipeline.OutcomePassed {
		return 0, false
	}
	next := rec.Stage + 1
	if next > entity.MaxStage {
		return 0, false
	}
	if next == entity.StageDeepDive {
		if rec.Classification == nil || rec.Classification.VibeScore < vibeThreshold {
			return 0, false
		}
	}
	return next, true
}
