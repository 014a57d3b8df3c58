// Package azurecu reads receipts with an Azure AI Content Understanding
// analyzer. The analyzer is trained to return the receipt fields directly,
// so no prompt is involved.
package azurecu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/extractor"
	"claimintake/internal/port"
)

const (
	defaultAnalyzer   = "hclaim"
	defaultAPIVersion = "2024-12-01-preview"
	subscriptionKey   = "Ocp-Apim-Subscription-Key"
)

// ErrAnalysisFailed is returned when the analyzer reports a Failed status.
var ErrAnalysisFailed = errors.New("content understanding analysis failed")

// Extractor implements port.DocumentExtractor against a Content Understanding analyzer.
type Extractor struct {
	apiKey       string
	endpoint     string
	analyzerID   string
	apiVersion   string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *http.Client
}

// NewExtractor creates a Content Understanding extractor from a provider config.
func NewExtractor(cfg *config.ProviderConfig) (*Extractor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azurecu: endpoint is required")
	}
	return NewExtractorWithEndpoint(cfg, cfg.Endpoint), nil
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Extractor {
	analyzer := cfg.AnalyzerID
	if analyzer == "" {
		analyzer = defaultAnalyzer
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	interval := time.Duration(cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	pollTimeout := time.Duration(cfg.PollTimeoutSecs) * time.Second
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Extractor{
		apiKey:       cfg.APIKey,
		endpoint:     strings.TrimRight(endpoint, "/"),
		analyzerID:   analyzer,
		apiVersion:   version,
		pollInterval: interval,
		pollTimeout:  pollTimeout,
		client:       &http.Client{Timeout: timeout},
	}
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ProviderOutput, error) {
	if _, ok := domain.AllowedContentTypes[input.ContentType]; !ok {
		return nil, domain.NewExtractionFailure(domain.ReasonUnsupportedFormat,
			fmt.Errorf("azurecu cannot read %s", input.ContentType))
	}

	opURL, err := e.beginAnalyze(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := e.pollResult(ctx, opURL)
	if err != nil {
		return nil, err
	}

	return toProviderOutput(result, e.analyzerID)
}

func (e *Extractor) beginAnalyze(ctx context.Context, input port.ExtractInput) (string, error) {
	url := fmt.Sprintf("%s/contentunderstanding/analyzers/%s:analyze?api-version=%s",
		e.endpoint, e.analyzerID, e.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(input.FileBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(subscriptionKey, e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling content understanding API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		baseErr := fmt.Errorf("content understanding error (status %d): %s", resp.StatusCode, extractor.Truncate(string(body), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", extractor.NewRateLimitError("azurecu", baseErr, extractor.RetryAfter(resp.Header, time.Now()))
		}
		return "", baseErr
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("content understanding response has no Operation-Location header")
	}
	return opURL, nil
}

func (e *Extractor) pollResult(ctx context.Context, opURL string) (*analyzeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		op, err := e.getOperation(ctx, opURL)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(op.Status) {
		case "succeeded":
			return &op.Result, nil
		case "failed":
			return nil, ErrAnalysisFailed
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for analysis result: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *Extractor) getOperation(ctx context.Context, opURL string) (*operation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating poll request: %w", err)
	}
	req.Header.Set(subscriptionKey, e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polling content understanding: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content understanding poll error (status %d): %s", resp.StatusCode, extractor.Truncate(string(body), 500))
	}

	var op operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("unmarshaling poll response: %w", err)
	}
	return &op, nil
}

type operation struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Result analyzeResult `json:"result"`
}

type analyzeResult struct {
	AnalyzerID string    `json:"analyzerId"`
	Warnings   []any     `json:"warnings"`
	Contents   []content `json:"contents"`
}

type content struct {
	Markdown string           `json:"markdown"`
	Fields   map[string]field `json:"fields"`
}

type field struct {
	Type        string           `json:"type"`
	ValueString string           `json:"valueString"`
	ValueNumber *float64         `json:"valueNumber"`
	ValueDate   string           `json:"valueDate"`
	ValueArray  []field          `json:"valueArray"`
	ValueObject map[string]field `json:"valueObject"`
	Confidence  float64          `json:"confidence"`
}

func (f field) text() string {
	switch {
	case f.ValueString != "":
		return f.ValueString
	case f.ValueDate != "":
		return f.ValueDate
	case f.ValueNumber != nil:
		return fmt.Sprintf("%g", *f.ValueNumber)
	}
	return ""
}

// analyzer field name -> RawReceipt JSON name
var fieldNames = map[string]string{
	"ReceiptNumber": "receipt_number",
	"ReceiptDate":   "receipt_date",
	"AdmissionDate": "admission_date",
	"DischargeDate": "discharge_date",
	"Hospital":      "hospital",
	"Currency":      "currency",
	"BillAmount":    "bill_amount",
	"GST":           "gst",
	"DocumentType":  "document_type",
}

func toProviderOutput(result *analyzeResult, analyzer string) (*port.ProviderOutput, error) {
	if len(result.Contents) == 0 {
		return nil, domain.NewExtractionFailure(domain.ReasonUnreadable,
			errors.New("analyzer returned no contents"))
	}
	c := result.Contents[0]

	values := map[string]string{}
	conf := map[string]float64{}
	for name, key := range fieldNames {
		f, ok := c.Fields[name]
		if !ok {
			continue
		}
		if v := f.text(); v != "" {
			values[key] = v
			conf[key] = f.Confidence
		}
	}

	raw := port.RawReceipt{
		ReceiptNumber: values["receipt_number"],
		ReceiptDate:   values["receipt_date"],
		AdmissionDate: values["admission_date"],
		DischargeDate: values["discharge_date"],
		Hospital:      values["hospital"],
		Currency:      values["currency"],
		BillAmount:    values["bill_amount"],
		GST:           values["gst"],
		DocumentType:  values["document_type"],
	}

	if items, ok := c.Fields["BillItems"]; ok {
		for _, it := range items.ValueArray {
			obj := it.ValueObject
			raw.BillItems = append(raw.BillItems, domain.BillItem{
				Service: obj["ItemService"].text(),
				Detail:  obj["ItemDetail"].text(),
				Amount:  obj["ItemAmount"].text(),
			})
		}
	}

	return &port.ProviderOutput{
		Fields:     raw,
		Confidence: conf,
		Markdown:   c.Markdown,
		ModelUsed:  "azurecu/" + analyzer,
	}, nil
}
