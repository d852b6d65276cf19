package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

// ResultRepository writes per-stage artifacts. All methods run inside the
// persister's transaction.
type ResultRepository interface {
	InsertTagsTx(ctx context.Context, tx DBTX, tokenID int64, c entity.Classification) error
	InsertReportTx(ctx context.Context, tx DBTX, tokenID int64, reportText string) error
	UpsertSignalTx(ctx context.Context, tx DBTX, tokenID int64, sig entity.OnchainSignal) error
}

type resultRepo struct {
	log *slog.Logger
}

func NewResultRepository(log *slog.Logger) ResultRepository {
	return &resultRepo{log: log}
}

func (r *resultRepo) InsertTagsTx(ctx context.Context, tx DBTX, tokenID int64, c entity.Classification) error {
	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return common.WrapError(err, "encode tags")
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO token_tags (token_id, tags, vibe_score, risk_hint) VALUES ($1, $2, $3, $4)`,
		tokenID, tags, c.VibeScore, c.RiskHint())
	return common.WrapError(err, "insert tags")
}

func (r *resultRepo) InsertReportTx(ctx context.Context, tx DBTX, tokenID int64, reportText string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO analysis_reports (token_id, report_text) VALUES ($1, $2)`,
		tokenID, reportText)
	return common.WrapError(err, "insert report")
}

func (r *resultRepo) UpsertSignalTx(ctx context.Context, tx DBTX, tokenID int64, sig entity.OnchainSignal) error {
	_, err := tx.Exec(ctx, `
INSERT INTO onchain_signals (token_id, smart_money_count, avg_top_pnl, holders_analyzed, is_alpha, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (token_id) DO UPDATE
SET smart_money_count = EXCLUDED.smart_money_count,
    avg_top_pnl = EXCLUDED.avg_top_pnl,
    holders_analyzed = EXCLUDED.holders_analyzed,
    is_alpha = EXCLUDED.is_alpha,
    updated_at = now()`,
		tokenID, sig.SmartMoneyCount, sig.AvgTopPnL, sig.HoldersAnalyzed, sig.IsAlpha)
	return common.WrapError(err, "upsert signal")
}
