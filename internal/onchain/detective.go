package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zivvlabs/token-triage/internal/common"
	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/llm"
)

// SignalSource produces an on-chain holder signal for a contract address.
type SignalSource interface {
	Analyze(ctx context.Context, contract string) (entity.OnchainSignal, error)
}

// SupportsChain reports whether the holder analysis can run for a chain.
// The Helius token-account RPC is Solana only.
func SupportsChain(chain string) bool {
	return strings.EqualFold(chain, "solana")
}

const (
	topHolderLimit = 20
	pnlSampleSize  = 10
	// Wallets with realized ROI above this are counted as smart money; two or
	// more of them in the top holders marks the token as alpha.
	smartMoneyROI   = 50.0
	alphaSmartCount = 2
)

// Detective scans a token's top holders via Helius RPC and scores their
// wallets via the Birdeye PnL API.
type Detective struct {
	cfg  common.OnchainConfig
	http *http.Client
	log  *slog.Logger
}

func NewDetective(cfg common.OnchainConfig, logger *slog.Logger) *Detective {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Detective{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Enabled reports whether the collaborator has the credentials it needs.
func (d *Detective) Enabled() bool {
	return d.cfg.HeliusAPIKey != ""
}

type holder struct {
	Owner  string
	Amount float64
}

func (d *Detective) topHolders(ctx context.Context, mint string) ([]holder, error) {
	url := "https://mainnet.helius-rpc.com/?api-key=" + d.cfg.HeliusAPIKey
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      "get-holders",
		"method":  "getTokenAccounts",
		"params": map[string]any{
			"mint":  mint,
			"page":  1,
			"limit": 100,
		},
	}

	raw, _, err := llm.SendJSON(ctx, d.http, url, payload, nil, d.log)
	if err != nil {
		return nil, common.WrapError(err, "helius request")
	}

	var resp struct {
		Result struct {
			TokenAccounts []struct {
				Owner  string          `json:"owner"`
				Amount json.RawMessage `json:"amount"`
			} `json:"token_accounts"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.WrapError(err, "decode helius response")
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("helius error: %s", resp.Error.Message)
	}

	holders := make([]holder, 0, len(resp.Result.TokenAccounts))
	for _, a := range resp.Result.TokenAccounts {
		holders = append(holders, holder{Owner: a.Owner, Amount: parseAmount(a.Amount)})
	}
	// Helius does not guarantee amount ordering.
	sort.Slice(holders, func(i, j int) bool { return holders[i].Amount > holders[j].Amount })
	if len(holders) > topHolderLimit {
		holders = holders[:topHolderLimit]
	}
	return holders, nil
}

type walletPnL struct {
	RealizedPnLUSD        float64 `json:"realized_pnl_usd"`
	RealizedPnLPercentage float64 `json:"realized_pnl_percentage"`
}

func (d *Detective) getWalletPnL(ctx context.Context, wallet string) (*walletPnL, error) {
	url := "https://public-api.birdeye.so/v1/wallet/pnl?address=" + wallet
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.WrapError(err, "build birdeye request")
	}
	req.Header.Set("X-API-KEY", d.cfg.BirdeyeAPIKey)

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, common.WrapError(err, "birdeye request")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.log.Warn("birdeye body close failed", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("birdeye status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.WrapError(err, "read birdeye response")
	}

	var out struct {
		Success bool      `json:"success"`
		Data    walletPnL `json:"data"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, common.WrapError(err, "decode birdeye response")
	}
	if !out.Success {
		return nil, fmt.Errorf("birdeye lookup unsuccessful")
	}
	return &out.Data, nil
}

// Analyze implements SignalSource: top-holder scan plus wallet PnL sampling.
func (d *Detective) Analyze(ctx context.Context, contract string) (entity.OnchainSignal, error) {
	d.log.Debug("analyzing holders", "contract", contract)

	holders, err := d.topHolders(ctx, contract)
	if err != nil {
		return entity.OnchainSignal{}, err
	}
	if len(holders) == 0 {
		return entity.OnchainSignal{}, fmt.Errorf("no holders found for %s", contract)
	}

	sample := holders
	if len(sample) > pnlSampleSize {
		sample = sample[:pnlSampleSize]
	}

	smartMoney := 0
	totalPnL := 0.0
	scored := 0
	if d.cfg.BirdeyeAPIKey != "" {
		for _, h := range sample {
			pnl, err := d.getWalletPnL(ctx, h.Owner)
			if err != nil {
				d.log.Debug("wallet pnl unavailable", "wallet", h.Owner, "error", err)
				continue
			}
			scored++
			if pnl.RealizedPnLPercentage > smartMoneyROI {
				smartMoney++
			}
			totalPnL += pnl.RealizedPnLUSD
		}
	}

	sig := entity.OnchainSignal{
		SmartMoneyCount: smartMoney,
		HoldersAnalyzed: len(holders),
		IsAlpha:         smartMoney >= alphaSmartCount,
	}
	if scored > 0 {
		sig.AvgTopPnL = totalPnL / float64(scored)
	}

	d.log.Info("holder analysis complete",
		"contract", contract,
		"holders", len(holders),
		"wallets_scored", scored,
		"smart_money", smartMoney,
		"is_alpha", sig.IsAlpha,
	)
	return sig, nil
}

// parseAmount tolerates both numeric and string token amounts in RPC output.
func parseAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return 0
}
