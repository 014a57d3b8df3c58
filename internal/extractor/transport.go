package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a provider reply is read.
const maxResponseBytes = 8 << 20

// PostJSON sends body to url as JSON and returns the reply body when the
// provider answers 200. A 429 becomes a *RateLimitError carrying the
// provider's Retry-After; any other status is an error quoting the reply.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: reading response: %w", provider, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, Truncate(string(reply), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, NewRateLimitError(provider, statusErr, RetryAfter(resp.Header, time.Now()))
		}
		return nil, statusErr
	}
	return reply, nil
}
