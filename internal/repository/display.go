package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

// ProjectUpdate is a display upsert with an explicit record of which fields
// the current stage actually produced. Merge policy is last-writer-wins per
// field: a stage that produced no value for a column must not clobber what an
// earlier stage wrote there.
type ProjectUpdate struct {
	Project   entity.Project
	HasTags   bool // tags, risk_hint and hype_score (stage 2)
	HasReport bool // ai_report (stage 3)
}

// DisplayRepository upserts the denormalized row consumers read.
type DisplayRepository interface {
	UpsertProjectTx(ctx context.Context, tx DBTX, u ProjectUpdate) error
}

type displayRepo struct {
	log *slog.Logger
}

func NewDisplayRepository(log *slog.Logger) DisplayRepository {
	return &displayRepo{log: log}
}

// baseUpdateColumns are refreshed from the token snapshot on every successful
// stage.
var baseUpdateColumns = []string{
	"market_cap", "liquidity", "price_change_24h", "description", "image_url",
}

// UpdateColumns returns the conflict-update column set for this upsert.
// Exported for the persister tests; the INSERT itself always supplies every
// column since defaults cover the rest on first write.
func (u ProjectUpdate) UpdateColumns() []string {
	cols := append([]string(nil), baseUpdateColumns...)
	if u.HasTags {
		cols = append(cols, "tags", "risk_hint", "hype_score")
	}
	if u.HasReport {
		cols = append(cols, "ai_report")
	}
	return cols
}

func (r *displayRepo) UpsertProjectTx(ctx context.Context, tx DBTX, u ProjectUpdate) error {
	p := u.Project
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return common.WrapError(err, "encode tags")
	}
	if p.Tags == nil {
		tags = []byte("[]")
	}

	sets := make([]string, 0, 9)
	for _, col := range u.UpdateColumns() {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	sets = append(sets, "updated_at = now()")

	query := fmt.Sprintf(`
INSERT INTO projects (
    id, symbol, name, image_url, chain_id, contract_address,
    market_cap, liquidity, price_change_24h, age, safety_level,
    tags, risk_hint, description, ai_report, hype_score, type
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO UPDATE SET %s`, strings.Join(sets, ", "))

	_, err = tx.Exec(ctx, query,
		p.ID, p.Symbol, p.Name, p.ImageURL, p.ChainID, p.Contract,
		p.MarketCap, p.Liquidity, p.PriceChange24h, p.Age, p.SafetyLevel,
		tags, p.RiskHint, p.Description, p.AIReport, p.HypeScore, p.Type)
	return common.WrapError(err, "upsert project")
}
