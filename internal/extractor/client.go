package extractor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/port"
	"claimintake/internal/validator"
)

// Client is the document extraction client used by the intake pipeline. It
// wraps a provider chain, normalises provider output into a ReceiptRecord and
// classifies every failure with a reason code.
type Client struct {
	provider      port.DocumentExtractor
	catalog       *CurrencyCatalog
	minConfidence float64
	checker       *validator.RecordChecker
	logger        *zap.Logger
}

// NewClient creates a Client. A zero minConfidence disables the confidence gate.
func NewClient(provider port.DocumentExtractor, catalog *CurrencyCatalog, minConfidence float64, logger *zap.Logger) *Client {
	if catalog == nil {
		catalog = NewCurrencyCatalog(DefaultCurrencies())
	}
	return &Client{
		provider:      provider,
		catalog:       catalog,
		minConfidence: minConfidence,
		checker:       validator.NewRecordChecker(),
		logger:        logger,
	}
}

// Extract returns a ReceiptExtraction or a *domain.ExtractionFailure. It is
// safe for concurrent use.
func (c *Client) Extract(ctx context.Context, input port.ExtractInput) (*port.ReceiptExtraction, error) {
	if _, ok := domain.AllowedContentTypes[input.ContentType]; !ok {
		return nil, domain.NewExtractionFailure(domain.ReasonUnsupportedFormat,
			fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, input.ContentType))
	}
	if len(input.FileBytes) == 0 {
		return nil, domain.NewExtractionFailure(domain.ReasonUnreadable, errors.New("empty file"))
	}

	out, err := c.provider.Extract(ctx, input)
	if err != nil {
		var ef *domain.ExtractionFailure
		if errors.As(err, &ef) {
			return nil, ef
		}
		return nil, domain.NewExtractionFailure(domain.ReasonServiceError, err)
	}
	if out == nil || out.Fields.IsEmpty() {
		return nil, domain.NewExtractionFailure(domain.ReasonUnreadable, errors.New("no receipt fields found"))
	}

	record, gst, warnings := Normalize(out.Fields, input.DocumentID, c.catalog)
	if len(record.PopulatedFields()) == 0 {
		return nil, domain.NewExtractionFailure(domain.ReasonUnreadable,
			fmt.Errorf("no usable receipt fields: %v", warnings))
	}

	confidence := RecordConfidence(record, out.Confidence)
	if c.belowConfidence(confidence) {
		return nil, domain.NewExtractionFailure(domain.ReasonLowConfidence,
			fmt.Errorf("every extracted field is below confidence %.2f", c.minConfidence))
	}

	if err := c.checker.Check(record); err != nil {
		return nil, domain.NewExtractionFailure(domain.ReasonUnreadable, err)
	}

	if len(warnings) > 0 {
		c.logger.Debug("extractor.Client: normalisation warnings",
			zap.String("file", input.FileName), zap.Strings("warnings", warnings))
	}

	return &port.ReceiptExtraction{
		Record:     record,
		Confidence: confidence,
		BillItems:  out.Fields.BillItems,
		GST:        gst,
		Markdown:   out.Markdown,
		ModelUsed:  out.ModelUsed,
		Provenance: out.FieldProvenance,
		Warnings:   warnings,
	}, nil
}

func (c *Client) belowConfidence(conf map[string]float64) bool {
	if c.minConfidence <= 0 || len(conf) == 0 {
		return false
	}
	for _, v := range conf {
		if v >= c.minConfidence {
			return false
		}
	}
	return true
}
