package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/port"
	"claimintake/internal/schema"
	"claimintake/internal/validator"
)

// PipelineInput is one receipt in upload order. When FileBytes is empty the
// pipeline calls Fetch from the receipt's own goroutine.
type PipelineInput struct {
	port.ExtractInput
	Fetch func(ctx context.Context) ([]byte, error)
}

// ReceiptResult is the settled extraction of one receipt: exactly one of
// Extraction and Failure is set.
type ReceiptResult struct {
	Index      int                       `json:"index"`
	DocumentID string                    `json:"documentId"`
	FileName   string                    `json:"fileName"`
	Extraction *port.ReceiptExtraction   `json:"extraction,omitempty"`
	Failure    *domain.ExtractionFailure `json:"failure,omitempty"`
}

// Succeeded reports whether the receipt was extracted.
func (r ReceiptResult) Succeeded() bool { return r.Failure == nil && r.Extraction != nil }

// Summary counts the receipts of one batch run.
type Summary struct {
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	TotalAmount float64 `json:"totalAmount"`
}

// Outcome is everything one batch run reports to the presentation layer.
// When Failure is set the attempt was aborted and no claim is shown.
type Outcome struct {
	Receipts         []ReceiptResult                   `json:"receipts"`
	Summary          Summary                           `json:"summary"`
	ClaimType        domain.ClaimType                  `json:"claimType,omitempty"`
	Candidate        json.RawMessage                   `json:"candidate,omitempty"`
	Validation       *validator.Result                 `json:"validation,omitempty"`
	FieldStatuses    map[string]*validator.FieldStatus `json:"fieldStatuses,omitempty"`
	AssistantStatus  domain.AssistantStatus            `json:"assistantStatus,omitempty"`
	AssistantMessage string                            `json:"assistantMessage,omitempty"`
	ModelUsed        string                            `json:"modelUsed,omitempty"`
	Failure          *domain.AssemblyFailure           `json:"failure,omitempty"`
}

// Records returns the successfully extracted records in upload order.
func (o *Outcome) Records() []domain.ReceiptRecord {
	out := make([]domain.ReceiptRecord, 0, len(o.Receipts))
	for _, r := range o.Receipts {
		if r.Succeeded() {
			out = append(out, r.Extraction.Record)
		}
	}
	return out
}

// Valid reports whether the run produced an accepted claim.
func (o *Outcome) Valid() bool {
	return o.Failure == nil && o.Validation != nil && o.Validation.Valid()
}

// PipelineConfig holds settings for the intake pipeline.
type PipelineConfig struct {
	// Concurrency bounds the number of receipts extracted at once.
	Concurrency int
	// OnReceipt is called once per receipt as soon as it settles. It may be
	// called from several goroutines at once.
	OnReceipt func(ReceiptResult)
}

// Pipeline runs receipts through extraction, classification, assembly and
// validation.
type Pipeline struct {
	extractor port.ReceiptExtractor
	assistant port.ClaimAssistant
	registry  *schema.Registry
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	extractor port.ReceiptExtractor,
	assistant port.ClaimAssistant,
	registry *schema.Registry,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Pipeline{
		extractor: extractor,
		assistant: assistant,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes one batch. Extraction failures are reported per receipt and
// never abort the batch; classification and assembly failures set
// Outcome.Failure. The error is non-nil only when ctx was cancelled.
func (p *Pipeline) Run(ctx context.Context, inputs []PipelineInput, policy *domain.PolicyContext) (*Outcome, error) {
	return p.run(ctx, inputs, policy, p.cfg.OnReceipt)
}

// RunWithProgress is Run with a per-call receipt callback in place of the
// configured one.
func (p *Pipeline) RunWithProgress(ctx context.Context, inputs []PipelineInput, policy *domain.PolicyContext, onReceipt func(ReceiptResult)) (*Outcome, error) {
	return p.run(ctx, inputs, policy, onReceipt)
}

func (p *Pipeline) run(ctx context.Context, inputs []PipelineInput, policy *domain.PolicyContext, onReceipt func(ReceiptResult)) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Receipts: p.extractAll(ctx, inputs, onReceipt)}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	for _, r := range out.Receipts {
		if !r.Succeeded() {
			out.Summary.Failures++
			continue
		}
		out.Summary.Successes++
		if r.Extraction.Record.Amount != nil {
			out.Summary.TotalAmount += *r.Extraction.Record.Amount
		}
	}
	records := out.Records()

	rawType, err := p.assistant.Classify(ctx, records, policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		out.Failure = domain.NewAssemblyFailure(domain.StageClassify, err)
		return out, nil
	}
	claimType, err := p.registry.Resolve(rawType)
	if err != nil {
		out.Failure = domain.NewAssemblyFailure(domain.StageClassify, err)
		return out, nil
	}
	out.ClaimType = claimType

	s, err := p.registry.GetSchema(claimType)
	if err != nil {
		out.Failure = domain.NewAssemblyFailure(domain.StageClassify, err)
		return out, nil
	}

	assembled, err := p.assistant.Assemble(ctx, port.AssembleInput{
		ClaimType: claimType,
		Receipts:  records,
		Policy:    policy,
		Schema:    s.Document(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		out.Failure = domain.NewAssemblyFailure(domain.StageAssemble, err)
		return out, nil
	}
	if assembled == nil || len(assembled.Claim) == 0 {
		out.Failure = domain.NewAssemblyFailure(domain.StageAssemble, errors.New("assistant returned no claim"))
		return out, nil
	}

	candidate := validator.NewCandidate(assembled.Claim)
	result := validator.Validate(candidate, s)

	out.Candidate = candidate.Raw()
	out.Validation = &result
	out.FieldStatuses = validator.ComputeFieldStatuses(result.Violations, claimConfidence(out.Receipts))
	out.AssistantStatus = assembled.Status
	out.AssistantMessage = assembled.Message
	out.ModelUsed = assembled.ModelUsed

	p.logger.Info("service.Pipeline: batch complete",
		zap.String("claim_type", string(claimType)),
		zap.Int("successes", out.Summary.Successes),
		zap.Int("failures", out.Summary.Failures),
		zap.Int("violations", len(result.Violations)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// extractAll fans out one goroutine per receipt. Each writes only its own
// slot, so the results keep upload order without locking.
func (p *Pipeline) extractAll(ctx context.Context, inputs []PipelineInput, onReceipt func(ReceiptResult)) []ReceiptResult {
	results := make([]ReceiptResult, len(inputs))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			res := ReceiptResult{
				Index:      i,
				DocumentID: inputs[i].DocumentID,
				FileName:   inputs[i].FileName,
			}

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				ext, err := p.extractOne(ctx, inputs[i])
				if err != nil {
					res.Failure = domain.AsExtractionFailure(err)
				} else {
					res.Extraction = ext
				}
			case <-ctx.Done():
				res.Failure = domain.NewExtractionFailure(domain.ReasonServiceError, ctx.Err())
			}

			if res.Failure != nil {
				p.logger.Warn("service.Pipeline: receipt extraction failed",
					zap.Int("index", i),
					zap.String("file", res.FileName),
					zap.String("reason", string(res.Failure.Reason)),
					zap.Error(res.Failure.Err),
				)
			}
			results[i] = res
			if onReceipt != nil {
				onReceipt(res)
			}
		}(i)
	}

	wg.Wait()
	return results
}

func (p *Pipeline) extractOne(ctx context.Context, in PipelineInput) (*port.ReceiptExtraction, error) {
	input := in.ExtractInput
	if len(input.FileBytes) == 0 && in.Fetch != nil {
		data, err := in.Fetch(ctx)
		if err != nil {
			return nil, domain.NewExtractionFailure(domain.ReasonServiceError, fmt.Errorf("fetching receipt: %w", err))
		}
		input.FileBytes = data
	}
	return p.extractor.Extract(ctx, input)
}

// claimConfidence maps extraction confidence onto claim field paths. Receipts
// appear in the claim in upload order with failed receipts left out.
func claimConfidence(results []ReceiptResult) map[string]float64 {
	out := make(map[string]float64)
	pos := 0
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		for field, c := range r.Extraction.Confidence {
			out[fmt.Sprintf("receipts[%d].%s", pos, field)] = c
		}
		pos++
	}
	return out
}
