package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zivvlabs/token-triage/internal/common"
)

// FilterStage is the stage-1 rule filter: a pure evaluation over the token
// snapshot. Rejections are Filtered, not errors, and terminate the pipeline
// for the token.
type FilterStage struct {
	cfg *common.FilterConfig
	log *slog.Logger
}

func NewFilterStage(cfg *common.FilterConfig, logger *slog.Logger) *FilterStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterStage{cfg: cfg, log: logger}
}

func (s *FilterStage) Run(rec *WorkingRecord) *WorkingRecord {
	t := rec.Token
	s.log.Debug("filter stage", "job_id", rec.JobID, "symbol", t.DisplaySymbol(), "contract", t.Contract)

	liq := 0.0
	if t.Liquidity != nil {
		liq = *t.Liquidity
	}
	if liq < s.cfg.MinLiquidity {
		s.log.Info("filtered: liquidity too low", "job_id", rec.JobID, "liquidity", liq)
		rec.Status = OutcomeFiltered
		rec.Report = "Liquidity too low"
		return rec
	}

	if s.cfg.RequireNotHoneypot && t.Honeypot != nil && *t.Honeypot {
		s.log.Info("filtered: honeypot detected", "job_id", rec.JobID)
		rec.Status = OutcomeFiltered
		rec.Report = "Honeypot detected"
		return rec
	}

	buyTax, err := parseTax(t.BuyTax)
	if err != nil {
		return rec.fail(fmt.Sprintf("tax parse error: %v", err))
	}
	sellTax, err := parseTax(t.SellTax)
	if err != nil {
		return rec.fail(fmt.Sprintf("tax parse error: %v", err))
	}
	if buyTax != nil && *buyTax > s.cfg.MaxTax {
		s.log.Info("filtered: buy tax too high", "job_id", rec.JobID, "buy_tax", *buyTax)
		rec.Status = OutcomeFiltered
		rec.Report = "Buy tax too high"
		return rec
	}
	if sellTax != nil && *sellTax > s.cfg.MaxTax {
		s.log.Info("filtered: sell tax too high", "job_id", rec.JobID, "sell_tax", *sellTax)
		rec.Status = OutcomeFiltered
		rec.Report = "Sell tax too high"
		return rec
	}

	rec.Status = OutcomePassed
	return rec
}

// parseTax parses the upstream free-text tax rate. nil stays nil; a malformed
// value is an error, not a filter decision.
func parseTax(raw *string) (*float64, error) {
	if raw == nil {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid tax value %q", s)
	}
	return &v, nil
}
