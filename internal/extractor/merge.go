package extractor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"claimintake/internal/port"
)

var (
	dateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$|^\d{1,2}[/-]\d{1,2}[/-]\d{4}$`)
	amountRe = regexp.MustCompile(`^[^\d-]*-?[\d,]+(\.\d+)?$`)
	codeRe   = regexp.MustCompile(`^[A-Z]{3}$`)
)

var errNoOutput = errors.New("provider returned no output")

// MergeExtractor runs two providers in parallel and merges their fields.
type MergeExtractor struct {
	primary   port.DocumentExtractor
	secondary port.DocumentExtractor
	logger    *zap.Logger
}

// NewMergeExtractor creates a MergeExtractor from primary and secondary providers.
func NewMergeExtractor(primary, secondary port.DocumentExtractor, logger *zap.Logger) *MergeExtractor {
	return &MergeExtractor{primary: primary, secondary: secondary, logger: logger}
}

func (m *MergeExtractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ProviderOutput, error) {
	type result struct {
		output *port.ProviderOutput
		err    error
	}

	var wg sync.WaitGroup
	primaryCh := make(chan result, 1)
	secondaryCh := make(chan result, 1)

	wg.Add(2)
	run := func(p port.DocumentExtractor, ch chan<- result) {
		defer wg.Done()
		out, err := p.Extract(ctx, input)
		if err == nil && out == nil {
			err = errNoOutput
		}
		ch <- result{out, err}
	}
	go run(m.primary, primaryCh)
	go run(m.secondary, secondaryCh)

	wg.Wait()
	close(primaryCh)
	close(secondaryCh)

	pResult := <-primaryCh
	sResult := <-secondaryCh

	if pResult.err != nil && sResult.err != nil {
		// Both are wrapped so a classified primary failure keeps its reason.
		return nil, fmt.Errorf("both providers failed: primary: %w; secondary: %w", pResult.err, sResult.err)
	}

	if pResult.err != nil {
		m.logger.Warn("extractor.MergeExtractor: primary failed, using secondary only", zap.Error(pResult.err))
		sResult.output.FieldProvenance = map[string]string{"_source": "secondary_only"}
		sResult.output.SecondaryModel = sResult.output.ModelUsed
		return sResult.output, nil
	}

	if sResult.err != nil {
		m.logger.Warn("extractor.MergeExtractor: secondary failed, using primary only", zap.Error(sResult.err))
		pResult.output.FieldProvenance = map[string]string{"_source": "primary_only"}
		return pResult.output, nil
	}

	return mergeOutputs(pResult.output, sResult.output), nil
}

func mergeOutputs(primary, secondary *port.ProviderOutput) *port.ProviderOutput {
	p, s := primary.Fields, secondary.Fields
	pConf := copyConfidence(primary.Confidence)
	sConf := secondary.Confidence
	provenance := make(map[string]string)
	merged := p

	mergeString(&merged.ReceiptNumber, s.ReceiptNumber, pConf, sConf, "receipt_number", provenance, nil)
	mergeString(&merged.ReceiptDate, s.ReceiptDate, pConf, sConf, "receipt_date", provenance, dateRe)
	mergeString(&merged.AdmissionDate, s.AdmissionDate, pConf, sConf, "admission_date", provenance, dateRe)
	mergeString(&merged.DischargeDate, s.DischargeDate, pConf, sConf, "discharge_date", provenance, dateRe)
	mergeString(&merged.Hospital, s.Hospital, pConf, sConf, "hospital", provenance, nil)
	mergeString(&merged.Currency, s.Currency, pConf, sConf, "currency", provenance, codeRe)
	mergeString(&merged.BillAmount, s.BillAmount, pConf, sConf, "bill_amount", provenance, amountRe)
	mergeString(&merged.GST, s.GST, pConf, sConf, "gst", provenance, amountRe)
	mergeString(&merged.DocumentType, s.DocumentType, pConf, sConf, "document_type", provenance, nil)

	// Bill items: pick the array with more items
	if len(s.BillItems) > len(p.BillItems) {
		merged.BillItems = s.BillItems
		provenance["bill_items"] = "secondary"
	} else {
		provenance["bill_items"] = "primary"
	}

	markdown := primary.Markdown
	if markdown == "" {
		markdown = secondary.Markdown
	}

	return &port.ProviderOutput{
		Fields:          merged,
		Confidence:      pConf,
		Markdown:        markdown,
		ModelUsed:       primary.ModelUsed,
		FieldProvenance: provenance,
		SecondaryModel:  secondary.ModelUsed,
	}
}

func copyConfidence(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// mergeString implements the merge strategy for scalar string fields.
func mergeString(pVal *string, sVal string, pConf, sConf map[string]float64, field string, provenance map[string]string, formatRe *regexp.Regexp) {
	if *pVal == sVal {
		if *pVal == "" {
			return
		}
		// Agreement: boost confidence
		if c := pConf[field]; c < 1.0 {
			boosted := c + (1.0-c)*0.2
			if boosted > 1.0 {
				boosted = 1.0
			}
			pConf[field] = boosted
		}
		provenance[field] = "agree"
		return
	}

	if *pVal == "" && sVal != "" {
		*pVal = sVal
		pConf[field] = sConf[field]
		provenance[field] = "secondary"
		return
	}

	if sVal == "" {
		provenance[field] = "primary"
		return
	}

	// Disagreement: prefer value matching expected format
	if formatRe != nil {
		pMatch := formatRe.MatchString(*pVal)
		sMatch := formatRe.MatchString(sVal)
		if sMatch && !pMatch {
			*pVal = sVal
			pConf[field] = sConf[field] * 0.8
			provenance[field] = "secondary_format"
			return
		}
		if pMatch && !sMatch {
			pConf[field] *= 0.8
			provenance[field] = "primary_format"
			return
		}
	}

	// Both disagree, keep primary but reduce confidence
	pConf[field] *= 0.6
	provenance[field] = "disagreement"
}
