package entity

import "time"

// Token is the read-only snapshot of the analyzed entity. The tokens table is
// owned and mutated by the upstream ingestion process; this service only reads
// it, once per job execution.
//
// Buy/sell tax come through as free text from upstream scrapers and are parsed
// at the filter boundary, so a malformed value can be surfaced as an error
// rather than silently dropped.
type Token struct {
	ID             int64      `json:"id"`
	Contract       string     `json:"contract"`
	Symbol         *string    `json:"symbol,omitempty"`
	Name           *string    `json:"name,omitempty"`
	Chain          *string    `json:"chain,omitempty"`
	Liquidity      *float64   `json:"liquidity,omitempty"`
	MarketCap      *float64   `json:"market_cap,omitempty"`
	PriceChange24h *string    `json:"price_change_24h,omitempty"`
	BuyTax         *string    `json:"buy_tax,omitempty"`
	SellTax        *string    `json:"sell_tax,omitempty"`
	Honeypot       *bool      `json:"honeypot,omitempty"`
	Description    *string    `json:"description,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	PairCreatedAt  *time.Time `json:"pair_created_at,omitempty"`
}

// DisplaySymbol returns the symbol with the upstream "missing" fallback.
func (t *Token) DisplaySymbol() string {
	if t.Symbol != nil && *t.Symbol != "" {
		return *t.Symbol
	}
	return "Unknown"
}

// DisplayName returns the name with the upstream "missing" fallback.
func (t *Token) DisplayName() string {
	if t.Name != nil && *t.Name != "" {
		return *t.Name
	}
	return "Unknown"
}
