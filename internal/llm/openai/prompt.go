package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zivvlabs/token-triage/internal/entity"
)

const classifySystemPrompt = `Role: You are a Web3 Meme Coin Classifier. Your job is to extract narrative tags from basic token info.
Constraints:
1. Output MUST be valid JSON only. No markdown, no conversation.
2. Speed is key. Keep analysis shallow but accurate based on the name/bio.
3. If the bio mentions "Fan token" or "Not affiliated", tag it as "Community/Imitation".`

func buildClassifyUserPrompt(t *entity.Token) string {
	input := map[string]any{
		"symbol":          t.DisplaySymbol(),
		"name":            t.DisplayName(),
		"pair_created_at": strOr(formatTime(t.PairCreatedAt), "Unknown"),
		"liquidity_usd":   floatOr(t.Liquidity, 0),
		"description":     strPtrOr(t.Description, "N/A"),
		"chain":           strPtrOr(t.Chain, "Unknown"),
	}
	b, _ := json.MarshalIndent(input, "", "  ")

	return fmt.Sprintf(`Analyze the following Token Data:
%s

Task:
1. Identify the "Narrative" (e.g., AI, Elon Musk, Dog, Cat, Frog, Politics, Trump).
2. Judge the "Vibe" (e.g., Official-looking, Degen, Low-effort).
3. Give a "Scam_Probability" (Low/Medium/High) based on the name (e.g. if it copies a famous coin name like 'PEPE2', it's 'Derivative').

Return JSON format:
{
  "tags": ["String", "String"],
  "vibe_score": 0-100,
  "risk_level": "Low" | "Medium" | "High",
  "short_comment": "Max 10 words summary"
}`, string(b))
}

const investigateSystemPrompt = `Role: You are 'Zivv Agent', a senior DeFi analyst and on-chain detective.
Tone: Professional, sharp, slightly skeptical (Degen style), but objective.
Goal: Synthesize multiple data sources to determine if a token is a "Gem" (Buy) or a "Trap" (Avoid).`

func buildInvestigateUserPrompt(t *entity.Token, sig *entity.OnchainSignal) string {
	symbol := t.DisplaySymbol()
	market := fmt.Sprintf("Symbol $%s, Liquidity: $%v, MC: $%v", symbol, floatOr(t.Liquidity, 0), floatOr(t.MarketCap, 0))
	honeypot := "No"
	if t.Honeypot != nil && *t.Honeypot {
		honeypot = "Yes"
	}
	security := fmt.Sprintf("Honeypot: %s, Buy Tax: %s%%, Sell Tax: %s%%",
		honeypot, strPtrOr(t.BuyTax, "0"), strPtrOr(t.SellTax, "0"))

	onchainData := "No holder analysis available."
	if sig != nil {
		onchainData = fmt.Sprintf("Smart money wallets in top holders: %d, avg top-holder PnL: %.2f USD, alpha flag: %t (over %d holders analyzed)",
			sig.SmartMoneyCount, sig.AvgTopPnL, sig.IsAlpha, sig.HoldersAnalyzed)
	}

	context := fmt.Sprintf(`
[MARKET]: %s
[SECURITY]: %s
[ONCHAIN]: %s
[DEV]: Deployer: %s (History lookup pending)
[DESCRIPTION]: %s
`, market, security, onchainData, t.Contract, strPtrOr(t.Description, "N/A"))

	return fmt.Sprintf(`Analyze the following Meme Coin based on the provided Context.

Context Data:
%s

Instructions:
1. **Narrative Check:** detailedly explain WHY this coin is pumping. Is it related to a real-world event? Or is it just bot manipulation?
2. **Security Audit:** Look at the [SECURITY], [ONCHAIN] and [DEV] data. Even if the scanner says safe, if the Dev has a history of Rugs, mark it as "Dangerous".
3. **Verdict:** Give a final recommendation: "Ape in" (High conviction), "Degen Play" (Small bag), or "Stay Away".

Output format (Markdown):
## Zivv Analysis: $%s
**Narrative:** [Your analysis here]
**Risk Check:** [Highlight Dev history and tax risks]
**Verdict:** [Final conclusion]`, context, symbol)
}

func strPtrOr(s *string, def string) string {
	if s != nil && *s != "" {
		return *s
	}
	return def
}

func strOr(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func floatOr(f *float64, def float64) float64 {
	if f != nil {
		return *f
	}
	return def
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
