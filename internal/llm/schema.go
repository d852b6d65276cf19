package llm

// BuildClassificationJSONSchema returns a JSON-Schema (draft 2020-12 subset)
// as a generic map. It is sent to the model as an output constraint and used
// locally to validate the response before anything is persisted.
func BuildClassificationJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"tags": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string", "minLength": 1},
				"minItems": 1,
			},
			"vibe_score": map[string]any{
				"type":    "integer",
				"minimum": 0,
				"maximum": 100,
			},
			"risk_level": map[string]any{
				"type": "string",
				"enum": []string{"Low", "Medium", "High"},
			},
			"short_comment": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"tags", "vibe_score", "risk_level"},
	}
}
