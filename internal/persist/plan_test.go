package persist

import (
	"testing"
	"time"

	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/pipeline"
)

func TestPlanFailureLinearBackoff(t *testing.T) {
	base := 5 * time.Second
	var prev time.Duration
	for prevRetries := 0; prevRetries < 5; prevRetries++ {
		plan := PlanFailure(prevRetries, 5, base)
		if plan.Status != entity.JobStatusPending {
			t.Fatalf("retries=%d: status = %v, want pending", plan.Retries, plan.Status)
		}
		if plan.Retries != prevRetries+1 {
			t.Fatalf("retries = %d, want %d", plan.Retries, prevRetries+1)
		}
		want := time.Duration(prevRetries+1) * base
		if plan.Delay != want {
			t.Fatalf("delay = %v, want %v", plan.Delay, want)
		}
		if plan.Delay <= prev {
			t.Fatalf("backoff not strictly increasing: %v after %v", plan.Delay, prev)
		}
		prev = plan.Delay
	}
}

func TestPlanFailureExhaustsRetries(t *testing.T) {
	// 6th consecutive failure with MAX_RETRIES=5 goes terminal.
	plan := PlanFailure(5, 5, 5*time.Second)
	if plan.Status != entity.JobStatusFailed {
		t.Fatalf("status = %v, want failed", plan.Status)
	}
	if plan.Retries != 6 {
		t.Fatalf("retries = %d, want 6", plan.Retries)
	}
}

func classifiedRecord(stage, vibe int, status pipeline.Outcome) *pipeline.WorkingRecord {
	return &pipeline.WorkingRecord{
		JobID:   1,
		TokenID: 2,
		Stage:   stage,
		Status:  status,
		Classification: &entity.Classification{
			Tags:      []string{"Dog"},
			VibeScore: vibe,
			RiskLevel: entity.RiskMedium,
		},
	}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		name     string
		rec      *pipeline.WorkingRecord
		wantNext int
		wantOK   bool
	}{
		{
			name:     "filter pass advances to classify",
			rec:      &pipeline.WorkingRecord{Stage: entity.StageFilter, Status: pipeline.OutcomePassed},
			wantNext: entity.StageClassify,
			wantOK:   true,
		},
		{
			name:   "filtered never advances",
			rec:    &pipeline.WorkingRecord{Stage: entity.StageFilter, Status: pipeline.OutcomeFiltered},
			wantOK: false,
		},
		{
			name:   "error never advances",
			rec:    &pipeline.WorkingRecord{Stage: entity.StageClassify, Status: pipeline.OutcomeError},
			wantOK: false,
		},
		{
			name:     "classify pass above threshold advances",
			rec:      classifiedRecord(entity.StageClassify, 75, pipeline.OutcomePassed),
			wantNext: entity.StageDeepDive,
			wantOK:   true,
		},
		{
			name:     "classify pass at threshold advances",
			rec:      classifiedRecord(entity.StageClassify, 60, pipeline.OutcomePassed),
			wantNext: entity.StageDeepDive,
			wantOK:   true,
		},
		{
			name:   "classify pass below threshold stays",
			rec:    classifiedRecord(entity.StageClassify, 45, pipeline.OutcomePassed),
			wantOK: false,
		},
		{
			name:   "classify pass without classification stays",
			rec:    &pipeline.WorkingRecord{Stage: entity.StageClassify, Status: pipeline.OutcomePassed},
			wantOK: false,
		},
		{
			name:   "deep dive pass is terminal",
			rec:    classifiedRecord(entity.StageDeepDive, 99, pipeline.OutcomePassed),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := NextStage(tt.rec, 60)
			if ok != tt.wantOK {
				t.Fatalf("ok = %t, want %t", ok, tt.wantOK)
			}
			if ok && next != tt.wantNext {
				t.Fatalf("next = %d, want %d", next, tt.wantNext)
			}
		})
	}
}
