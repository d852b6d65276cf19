package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
)

// TokenRepository reads token snapshots. The tokens table is owned by the
// upstream ingestion process and may change between reads.
type TokenRepository interface {
	GetByID(ctx context.Context, tokenID int64) (*entity.Token, error)
}

type tokenRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTokenRepository(pool *pgxpool.Pool, log *slog.Logger) TokenRepository {
	return &tokenRepo{pool: pool, log: log}
}

func (r *tokenRepo) GetByID(ctx context.Context, tokenID int64) (*entity.Token, error) {
	var t entity.Token
	err := r.pool.QueryRow(ctx, `
SELECT id, contract, symbol, name, chain, liquidity, market_cap, price_change_24h,
       buy_tax, sell_tax, honeypot, description, image_url, pair_created_at
FROM tokens WHERE id = $1`, tokenID).Scan(
		&t.ID, &t.Contract, &t.Symbol, &t.Name, &t.Chain, &t.Liquidity, &t.MarketCap,
		&t.PriceChange24h, &t.BuyTax, &t.SellTax, &t.Honeypot, &t.Description,
		&t.ImageURL, &t.PairCreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.log.Error("token lookup failed", "token_id", tokenID, "error", err)
		return nil, common.WrapError(err, "get token")
	}
	return &t, nil
}
