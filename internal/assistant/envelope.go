package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"claimintake/internal/domain"
)

// Envelope is the reply format of LLM-backed assistants. Every field is
// untrusted.
type Envelope struct {
	ClaimType string          `json:"claimType"`
	Claim     json.RawMessage `json:"claim"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
}

// ParseEnvelope decodes an assistant reply. Prose around the JSON object and
// code fences are tolerated.
func ParseEnvelope(text string) (*Envelope, error) {
	obj, err := jsonObject(text)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(obj, &env); err != nil {
		return nil, fmt.Errorf("decoding assistant reply: %w", err)
	}
	return &env, nil
}

// AssistantStatus returns the normalised conversational status.
func (e *Envelope) AssistantStatus() domain.AssistantStatus {
	return domain.NormalizeAssistantStatus(e.Status)
}

// HasClaim reports whether the reply carries a JSON object under "claim".
func (e *Envelope) HasClaim() bool {
	c := bytes.TrimSpace(e.Claim)
	return len(c) > 0 && c[0] == '{'
}

// jsonObject returns the outermost {...} in text.
func jsonObject(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, errors.New("assistant reply contains no JSON object")
	}
	return []byte(text[start : end+1]), nil
}
