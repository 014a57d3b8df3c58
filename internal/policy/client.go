// Package policy reads policy and claim reference data from the insurer's
// domain services.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/extractor"
)

// Client implements port.PolicyDirectory over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	lbu     string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a policy directory client.
func NewClient(cfg *config.PolicyConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		lbu:     cfg.LBU,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error) {
	var out []domain.EligiblePolicy
	q := url.Values{"client_id": {clientID}}
	if err := c.get(ctx, "/policy/v1/policies/eligible/health", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	var out []domain.Currency
	if err := c.get(ctx, "/claim/v1/currencies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DocumentChecklist(ctx context.Context, claimType domain.ClaimType) ([]domain.DocumentChecklistItem, error) {
	var out []domain.DocumentChecklistItem
	q := url.Values{"claim_type": {string(claimType)}}
	if err := c.get(ctx, "/claim/v1/claim-documents/checklist", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PayoutMethods(ctx context.Context, policyID string) ([]domain.PayoutMethod, error) {
	var out []domain.PayoutMethod
	path := fmt.Sprintf("/policy/%s/payouts/methods", url.PathEscape(policyID))
	q := url.Values{"transaction_type": {"CLAIM"}}
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", domain.ErrPolicyServiceFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	if c.lbu != "" {
		req.Header.Set("Lbu-Header", c.lbu)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", domain.ErrPolicyServiceFailure, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", domain.ErrPolicyServiceFailure, path, err)
	}

	c.logger.Debug("policy.Client: request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d: %s",
			domain.ErrPolicyServiceFailure, path, resp.StatusCode, extractor.Truncate(string(body), 200))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", domain.ErrPolicyServiceFailure, path, err)
	}
	return nil
}
