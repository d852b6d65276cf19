package entity

// RiskLevel is the classifier's coarse scam-probability bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Classification is the stage-2 collaborator output.
type Classification struct {
	Tags         []string  `json:"tags"`
	VibeScore    int       `json:"vibe_score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	ShortComment string    `json:"short_comment"`
}

// RiskHint renders the "[<level>] <comment>" form stored with tag records and
// on the display row.
func (c *Classification) RiskHint() string {
	level := c.RiskLevel
	if level == "" {
		level = RiskMedium
	}
	return "[" + string(level) + "] " + c.ShortComment
}

// OnchainSignal summarizes the top-holder wallet analysis for a token.
type OnchainSignal struct {
	SmartMoneyCount int     `json:"smart_money_count"`
	AvgTopPnL       float64 `json:"avg_top_pnl"`
	HoldersAnalyzed int     `json:"holder_count_analyzed"`
	IsAlpha         bool    `json:"is_alpha"`
}

// Project is the denormalized display row consumers read. One row per token,
// keyed by contract address, upserted on every successful stage.
type Project struct {
	ID             string
	Symbol         string
	Name           string
	ImageURL       *string
	ChainID        string
	Contract       string
	MarketCap      string
	Liquidity      string
	PriceChange24h *string
	Age            string
	SafetyLevel    string
	Tags           []string
	RiskHint       *string
	Description    string
	AIReport       string
	HypeScore      int
	Type           string
}
