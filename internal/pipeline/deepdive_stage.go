package pipeline

import (
	"context"
	"log/slog"

	"github.com/zivvlabs/token-triage/internal/llm"
	"github.com/zivvlabs/token-triage/internal/onchain"
)

// DeepDiveStage is stage 3: it asks the investigation collaborator for a
// free-text report, optionally enriched with the on-chain holder signal.
// The signal is best-effort; only the investigation itself can fail the stage.
type DeepDiveStage struct {
	investigator llm.Investigator
	signals      onchain.SignalSource // nil when not configured
	log          *slog.Logger
}

func NewDeepDiveStage(investigator llm.Investigator, signals onchain.SignalSource, logger *slog.Logger) *DeepDiveStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepDiveStage{investigator: investigator, signals: signals, log: logger}
}

func (s *DeepDiveStage) Run(ctx context.Context, rec *WorkingRecord) *WorkingRecord {
	t := rec.Token
	s.log.Debug("deep dive stage", "job_id", rec.JobID, "symbol", t.DisplaySymbol())

	if s.signals != nil && t.Chain != nil && onchain.SupportsChain(*t.Chain) {
		sig, err := s.signals.Analyze(ctx, t.Contract)
		if err != nil {
			s.log.Warn("onchain signal unavailable", "job_id", rec.JobID, "contract", t.Contract, "error", err)
		} else {
			rec.Signal = &sig
		}
	}

	report, err := s.investigator.Investigate(ctx, t, rec.Signal)
	if err != nil {
		s.log.Error("investigation failed", "job_id", rec.JobID, "error", err)
		return rec.fail(err.Error())
	}

	rec.Report = report
	rec.Status = OutcomePassed
	s.log.Info("report generated",
		"job_id", rec.JobID,
		"symbol", t.DisplaySymbol(),
		"report_bytes", len(report),
		"has_signal", rec.Signal != nil,
	)
	return rec
}
