package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zivvlabs/token-triage/internal/entity"
	"github.com/zivvlabs/token-triage/internal/llm"
)

// post sends a chat-completions request and returns the raw response body.
func (c *Client) post(ctx context.Context, body map[string]any) ([]byte, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	return raw, err
}

// chatContent extracts choices[0].message.content from a completions response.
func chatContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode completions response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in completions response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty completion content")
	}
	return content, nil
}

// Classify implements llm.Classifier. The response is validated against the
// classification schema before anything is returned; a malformed payload is
// an error, never partial data.
func (c *Client) Classify(ctx context.Context, token *entity.Token) (entity.Classification, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.classify.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"symbol", token.DisplaySymbol(),
		"contract", token.Contract,
	)

	schema := llm.BuildClassificationJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": classifySystemPrompt},
			{"role": "user", "content": buildClassifyUserPrompt(token)},
		},
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("llm.classify.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.Classification{}, err
	}

	content, err := chatContent(raw)
	if err != nil {
		c.log.Error("llm.classify.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return entity.Classification{}, err
	}

	if err := llm.ValidateJSONAgainstSchema(schema, []byte(content)); err != nil {
		c.log.Error("llm.classify.schema_validation_failed", "req_id", rid, "error", err, "content", content)
		return entity.Classification{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var out entity.Classification
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		c.log.Error("llm.classify.unmarshal_failed", "req_id", rid, "error", err)
		return entity.Classification{}, fmt.Errorf("unmarshal classification: %w", err)
	}

	c.log.Info("llm.classify.ok",
		"req_id", rid,
		"tags", out.Tags,
		"vibe_score", out.VibeScore,
		"risk_level", out.RiskLevel,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Investigate implements llm.Investigator: a free-text markdown report.
func (c *Client) Investigate(ctx context.Context, token *entity.Token, sig *entity.OnchainSignal) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.investigate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"symbol", token.DisplaySymbol(),
		"contract", token.Contract,
		"has_signal", sig != nil,
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": investigateSystemPrompt},
			{"role": "user", "content": buildInvestigateUserPrompt(token, sig)},
		},
	}

	raw, err := c.post(ctx, body)
	if err != nil {
		c.log.Error("llm.investigate.http_error", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	report, err := chatContent(raw)
	if err != nil {
		c.log.Error("llm.investigate.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", err
	}

	c.log.Info("llm.investigate.ok",
		"req_id", rid,
		"report_bytes", len(report),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}
