package pipeline

import (
	"strings"
	"testing"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

func filterConfig() *common.FilterConfig {
	return &common.FilterConfig{
		MinLiquidity:       2000,
		MaxTax:             0.20,
		RequireNotHoneypot: true,
		VibeThreshold:      60,
	}
}

func testToken(mut func(*entity.Token)) *entity.Token {
	liq := 5000.0
	hp := false
	t := &entity.Token{
		ID:        7,
		Contract:  "0xabc",
		Liquidity: &liq,
		Honeypot:  &hp,
	}
	if mut != nil {
		mut(t)
	}
	return t
}

func runFilter(t *testing.T, cfg *common.FilterConfig, tok *entity.Token) *WorkingRecord {
	t.Helper()
	stage := NewFilterStage(cfg, nil)
	rec := NewWorkingRecord(entity.Job{ID: 1, TokenID: tok.ID, Stage: entity.StageFilter}, tok)
	return stage.Run(rec)
}

func TestFilterStage(t *testing.T) {
	str := func(s string) *string { return &s }
	boolp := func(b bool) *bool { return &b }
	floatp := func(f float64) *float64 { return &f }

	tests := []struct {
		name       string
		mut        func(*entity.Token)
		cfg        func(*common.FilterConfig)
		wantStatus Outcome
		wantReason string
	}{
		{
			name:       "passes clean token",
			wantStatus: OutcomePassed,
		},
		{
			name:       "rejects low liquidity",
			mut:        func(tok *entity.Token) { tok.Liquidity = floatp(500) },
			wantStatus: OutcomeFiltered,
			wantReason: "Liquidity too low",
		},
		{
			name:       "missing liquidity counts as zero",
			mut:        func(tok *entity.Token) { tok.Liquidity = nil },
			wantStatus: OutcomeFiltered,
			wantReason: "Liquidity too low",
		},
		{
			name:       "rejects honeypot",
			mut:        func(tok *entity.Token) { tok.Honeypot = boolp(true) },
			wantStatus: OutcomeFiltered,
			wantReason: "Honeypot detected",
		},
		{
			name:       "honeypot allowed when toggle off",
			mut:        func(tok *entity.Token) { tok.Honeypot = boolp(true) },
			cfg:        func(c *common.FilterConfig) { c.RequireNotHoneypot = false },
			wantStatus: OutcomePassed,
		},
		{
			name:       "rejects high buy tax",
			mut:        func(tok *entity.Token) { tok.BuyTax = str("0.35") },
			wantStatus: OutcomeFiltered,
			wantReason: "Buy tax too high",
		},
		{
			name:       "rejects high sell tax",
			mut:        func(tok *entity.Token) { tok.SellTax = str("0.99") },
			wantStatus: OutcomeFiltered,
			wantReason: "Sell tax too high",
		},
		{
			name:       "tax at limit passes",
			mut:        func(tok *entity.Token) { tok.BuyTax = str("0.20"); tok.SellTax = str("0.20") },
			wantStatus: OutcomePassed,
		},
		{
			name:       "malformed tax is an error not a rejection",
			mut:        func(tok *entity.Token) { tok.BuyTax = str("n/a") },
			wantStatus: OutcomeError,
		},
		{
			name:       "empty tax string is ignored",
			mut:        func(tok *entity.Token) { tok.SellTax = str("  ") },
			wantStatus: OutcomePassed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := filterConfig()
			if tt.cfg != nil {
				tt.cfg(cfg)
			}
			rec := runFilter(t, cfg, testToken(tt.mut))
			if rec.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (report=%q err=%q)", rec.Status, tt.wantStatus, rec.Report, rec.ErrorMsg)
			}
			if tt.wantReason != "" && rec.Report != tt.wantReason {
				t.Errorf("report = %q, want %q", rec.Report, tt.wantReason)
			}
			if tt.wantStatus == OutcomeError && !strings.Contains(rec.ErrorMsg, "tax parse error") {
				t.Errorf("error message %q should mention tax parse error", rec.ErrorMsg)
			}
		})
	}
}

func TestFilterStageIdempotent(t *testing.T) {
	cfg := filterConfig()
	tok := testToken(func(tok *entity.Token) { liq := 500.0; tok.Liquidity = &liq })

	first := runFilter(t, cfg, tok)
	second := runFilter(t, cfg, tok)
	if first.Status != second.Status || first.Report != second.Report {
		t.Fatalf("filter not idempotent: (%q,%q) vs (%q,%q)", first.Status, first.Report, second.Status, second.Report)
	}
}
