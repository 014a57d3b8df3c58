package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"claimintake/internal/port"
)

// DecodeLLMOutput parses the {"data": ..., "confidence_scores": ...} object
// the receipt prompt asks for. Code fences around the JSON are tolerated.
func DecodeLLMOutput(text, model string) (*port.ProviderOutput, error) {
	text = stripFences(text)

	var parsed struct {
		Data             json.RawMessage `json:"data"`
		ConfidenceScores json.RawMessage `json:"confidence_scores"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parsing LLM JSON output: %w (raw: %s)", err, Truncate(text, 500))
	}
	if len(parsed.Data) == 0 || string(parsed.Data) == "null" {
		return nil, fmt.Errorf("LLM output has no data object (raw: %s)", Truncate(text, 500))
	}

	var fields port.RawReceipt
	if err := json.Unmarshal(parsed.Data, &fields); err != nil {
		return nil, fmt.Errorf("decoding receipt fields: %w", err)
	}

	conf := map[string]float64{}
	if len(parsed.ConfidenceScores) > 0 {
		// Scores are advisory; a malformed block only loses the confidence gate.
		_ = json.Unmarshal(parsed.ConfidenceScores, &conf)
	}

	return &port.ProviderOutput{
		Fields:     fields,
		Confidence: conf,
		ModelUsed:  model,
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
