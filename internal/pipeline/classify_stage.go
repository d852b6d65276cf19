package pipeline

import (
	"context"
	"log/slog"

	"github.com/zivvlabs/token-triage/internal/llm"
)

// ClassifyStage is stage 2: it delegates to the classification collaborator
// and records tags, vibe score, risk level and a short comment. Whether stage
// 3 is enqueued is the persister's decision, not this handler's.
type ClassifyStage struct {
	classifier llm.Classifier
	log        *slog.Logger
}

func NewClassifyStage(classifier llm.Classifier, logger *slog.Logger) *ClassifyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStage{classifier: classifier, log: logger}
}

func (s *ClassifyStage) Run(ctx context.Context, rec *WorkingRecord) *WorkingRecord {
	s.log.Debug("classify stage", "job_id", rec.JobID, "symbol", rec.Token.DisplaySymbol())

	c, err := s.classifier.Classify(ctx, rec.Token)
	if err != nil {
		s.log.Error("classification failed", "job_id", rec.JobID, "error", err)
		return rec.fail(err.Error())
	}

	rec.Classification = &c
	rec.Status = OutcomePassed
	s.log.Info("classified token",
		"job_id", rec.JobID,
		"symbol", rec.Token.DisplaySymbol(),
		"tags", c.Tags,
		"vibe_score", c.VibeScore,
		"risk_level", c.RiskLevel,
	)
	return rec
}
