package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zivvlabs/token-triage/internal/entity"
)

// Processor routes a claimed job to exactly one stage handler. Stage
// selection is purely a function of the job's stage field; which stage rows
// exist in the job store is the only cross-stage branching in the system.
type Processor struct {
	filter   *FilterStage
	classify *ClassifyStage
	deepDive *DeepDiveStage
	log      *slog.Logger
}

func NewProcessor(filter *FilterStage, classify *ClassifyStage, deepDive *DeepDiveStage, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{filter: filter, classify: classify, deepDive: deepDive, log: logger}
}

// Process runs the handler for the record's stage and returns the completed
// record. An unknown stage yields an error outcome so the job lands on the
// retry path and its row stays inspectable.
func (p *Processor) Process(ctx context.Context, rec *WorkingRecord) *WorkingRecord {
	switch rec.Stage {
	case entity.StageFilter:
		return p.filter.Run(rec)
	case entity.StageClassify:
		return p.classify.Run(ctx, rec)
	case entity.StageDeepDive:
		return p.deepDive.Run(ctx, rec)
	default:
		p.log.Error("unknown stage", "job_id", rec.JobID, "stage", rec.Stage)
		return rec.fail(fmt.Sprintf("unknown stage %d", rec.Stage))
	}
}
