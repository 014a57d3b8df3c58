package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"claimintake/internal/assistant"
	"claimintake/internal/domain"
	"claimintake/internal/port"
	"claimintake/internal/schema"
	"claimintake/internal/service"
	"claimintake/mocks"
)

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

func registry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load("")
	require.NoError(t, err)
	return reg
}

func clinicRecord(number string, amount float64) domain.ReceiptRecord {
	return domain.ReceiptRecord{
		Number:       strPtr(number),
		ReceiptDate:  strPtr("2024-04-02"),
		HospitalName: strPtr("Raffles Medical"),
		Currency:     &domain.Currency{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"},
		Amount:       floatPtr(amount),
		Documents:    []domain.ClaimDocument{{Type: domain.DocumentTypeReceipt, ID: "doc-" + number}},
	}
}

func extraction(rec domain.ReceiptRecord) *port.ReceiptExtraction {
	return &port.ReceiptExtraction{
		Record:     rec,
		Confidence: map[string]float64{"amount": 0.95, "number": 0.4},
		ModelUsed:  "stub",
	}
}

func input(name string) service.PipelineInput {
	return service.PipelineInput{ExtractInput: port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4 " + name),
		ContentType: "application/pdf",
		FileName:    name,
		DocumentID:  "doc-" + name,
	}}
}

func byFile(name string) interface{} {
	return mock.MatchedBy(func(in port.ExtractInput) bool { return in.FileName == name })
}

func policy() *domain.PolicyContext {
	branch := "001"
	return &domain.PolicyContext{
		ClientID:      "client-1",
		PolicyID:      "POL-1",
		LifeAssuredID: "LA-1",
		Policies: []domain.EligiblePolicy{{
			Policy:     domain.Policy{ID: "POL-1"},
			ClaimTypes: []string{"HOSPITALISATION", "OUTPATIENT"},
		}},
		PayoutMethods: []domain.PayoutMethod{{
			ID: "pm-1", Mode: domain.PayoutModeDirectCredit, Status: "ACTIVE",
			Currency: domain.Currency{Code: "SGD", Name: "Singapore Dollar", Symbol: "S$"},
			Account:  domain.PayoutAccount{Name: "DBS", AccountNo: "123-456", Holder: "Tan", BranchCode: &branch},
		}},
	}
}

func TestPipeline_PartialExtractionProceedsToAssembly(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, byFile("a.pdf")).Return(extraction(clinicRecord("A1", 100)), nil)
	ext.On("Extract", mock.Anything, byFile("b.tiff")).
		Return(nil, domain.NewExtractionFailure(domain.ReasonUnsupportedFormat, errors.New("tiff")))
	ext.On("Extract", mock.Anything, byFile("c.pdf")).Return(extraction(clinicRecord("C1", 50.5)), nil)

	var mu sync.Mutex
	var settled []int
	p := service.NewPipeline(ext, assistant.NewHeuristic(), registry(t), service.PipelineConfig{
		Concurrency: 2,
		OnReceipt: func(r service.ReceiptResult) {
			mu.Lock()
			settled = append(settled, r.Index)
			mu.Unlock()
		},
	}, zap.NewNop())

	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf"), input("b.tiff"), input("c.pdf")}, policy())

	require.NoError(t, err)
	require.Nil(t, out.Failure)
	assert.Len(t, settled, 3)

	require.Len(t, out.Receipts, 3)
	assert.True(t, out.Receipts[0].Succeeded())
	assert.False(t, out.Receipts[1].Succeeded())
	assert.Equal(t, domain.ReasonUnsupportedFormat, out.Receipts[1].Failure.Reason)
	assert.True(t, out.Receipts[2].Succeeded())

	assert.Equal(t, service.Summary{Successes: 2, Failures: 1, TotalAmount: 150.5}, out.Summary)
	assert.Equal(t, domain.ClaimTypeOutpatient, out.ClaimType)

	require.NotNil(t, out.Validation)
	assert.True(t, out.Valid(), "violations: %+v", out.Validation.Violations)
	accepted, ok := out.Validation.Accepted()
	require.True(t, ok)
	claim := accepted.Claim()
	require.Len(t, claim.Receipts, 2)
	assert.Equal(t, "A1", *claim.Receipts[0].Number)
	assert.Equal(t, "C1", *claim.Receipts[1].Number)
	assert.InDelta(t, 150.5, claim.Details.FinalAmount, 0.001)
	assert.Equal(t, domain.AssistantCompleted, out.AssistantStatus)
}

func TestPipeline_OutcomeJSONCarriesFailures(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, byFile("a.pdf")).Return(extraction(clinicRecord("A1", 100)), nil)
	ext.On("Extract", mock.Anything, byFile("b.tiff")).
		Return(nil, domain.NewExtractionFailure(domain.ReasonUnsupportedFormat, errors.New("tiff")))

	p := service.NewPipeline(ext, assistant.NewHeuristic(), registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf"), input("b.tiff")}, policy())
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded struct {
		Receipts []map[string]json.RawMessage `json:"receipts"`
		Failure  json.RawMessage              `json:"failure"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Receipts, 2)
	assert.NotContains(t, decoded.Receipts[0], "failure")
	assert.JSONEq(t, `{"reason":"unsupported_format","detail":"tiff"}`, string(decoded.Receipts[1]["failure"]))
	assert.Nil(t, decoded.Failure)
}

func TestPipeline_OutcomeJSONCarriesAssemblyFailure(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(extraction(clinicRecord("A1", 10)), nil)

	asst := new(mocks.MockClaimAssistant)
	asst.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("DENTAL", nil)

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded struct {
		Failure map[string]string `json:"failure"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "classify", decoded.Failure["stage"])
	assert.Contains(t, decoded.Failure["detail"], "unknown claim type")
}

func TestPipeline_PreservesUploadOrder(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	inputs := make([]service.PipelineInput, 6)
	for i := range inputs {
		name := string(rune('a'+i)) + ".pdf"
		inputs[i] = input(name)
		ext.On("Extract", mock.Anything, byFile(name)).Return(extraction(clinicRecord(name, float64(i))), nil)
	}

	p := service.NewPipeline(ext, assistant.NewHeuristic(), registry(t), service.PipelineConfig{Concurrency: 3}, zap.NewNop())
	out, err := p.Run(context.Background(), inputs, policy())

	require.NoError(t, err)
	records := out.Records()
	require.Len(t, records, 6)
	for i, r := range records {
		assert.Equal(t, string(rune('a'+i))+".pdf", *r.Number)
	}
}

func TestPipeline_UnknownClaimTypeIsClassifyFailure(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(extraction(clinicRecord("A1", 10)), nil)

	asst := new(mocks.MockClaimAssistant)
	asst.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("DENTAL", nil)

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())

	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.StageClassify, out.Failure.Stage)
	assert.ErrorIs(t, out.Failure, domain.ErrUnknownClaimType)
	assert.ErrorIs(t, out.Failure, domain.ErrAssemblyFailed)
	assert.Nil(t, out.Validation)
	asst.AssertNotCalled(t, "Assemble", mock.Anything, mock.Anything)
}

func TestPipeline_LowercaseClaimTypeIsRejected(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(extraction(clinicRecord("A1", 10)), nil)

	asst := new(mocks.MockClaimAssistant)
	asst.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("outpatient", nil)

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())

	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.ErrorIs(t, out.Failure, domain.ErrUnknownClaimType)
}

func TestPipeline_AssembleErrorIsAssemblyFailure(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(extraction(clinicRecord("A1", 10)), nil)

	asst := new(mocks.MockClaimAssistant)
	asst.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("OUTPATIENT", nil)
	asst.On("Assemble", mock.Anything, mock.Anything).Return(nil, errors.New("503 from model"))

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())

	require.NoError(t, err)
	require.NotNil(t, out.Failure)
	assert.Equal(t, domain.StageAssemble, out.Failure.Stage)
	assert.Empty(t, out.Candidate)
	assert.Equal(t, 1, out.Summary.Successes)
}

func TestPipeline_InvalidCandidateReportsViolations(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(extraction(clinicRecord("A1", 10)), nil)

	asst := new(mocks.MockClaimAssistant)
	asst.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return("OUTPATIENT", nil)
	asst.On("Assemble", mock.Anything, mock.MatchedBy(func(in port.AssembleInput) bool {
		return in.ClaimType == domain.ClaimTypeOutpatient && len(in.Receipts) == 1 && len(in.Schema) > 0
	})).Return(&port.AssembleOutput{
		Claim:   []byte(`{"claimType":"OUTPATIENT","clientId":"client-1"}`),
		Status:  domain.AssistantGatheringRequired,
		Message: "Which policy is this for?",
	}, nil)

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())

	require.NoError(t, err)
	require.Nil(t, out.Failure)
	require.NotNil(t, out.Validation)
	assert.False(t, out.Valid())
	assert.NotEmpty(t, out.Validation.Violations)
	assert.Equal(t, domain.AssistantGatheringRequired, out.AssistantStatus)
	assert.Equal(t, "Which policy is this for?", out.AssistantMessage)

	require.Contains(t, out.FieldStatuses, "policyId")
	assert.Equal(t, domain.FieldStatusMissing, out.FieldStatuses["policyId"].Status)
	require.Contains(t, out.FieldStatuses, "receipts[0].number")
	assert.Equal(t, domain.FieldStatusUnsure, out.FieldStatuses["receipts[0].number"].Status)
}

func TestPipeline_FetchErrorIsServiceError(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, byFile("b.pdf")).Return(extraction(clinicRecord("B1", 10)), nil)

	in := service.PipelineInput{
		ExtractInput: port.ExtractInput{ContentType: "application/pdf", FileName: "a.pdf"},
		Fetch: func(context.Context) ([]byte, error) {
			return nil, errors.New("no such key")
		},
	}

	p := service.NewPipeline(ext, assistant.NewHeuristic(), registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{in, input("b.pdf")}, policy())

	require.NoError(t, err)
	assert.Equal(t, domain.ReasonServiceError, out.Receipts[0].Failure.Reason)
	assert.True(t, out.Receipts[1].Succeeded())
	ext.AssertNumberOfCalls(t, "Extract", 1)
}

func TestPipeline_CancelledBeforeAssembly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, domain.NewExtractionFailure(domain.ReasonServiceError, context.Canceled))

	asst := new(mocks.MockClaimAssistant)

	p := service.NewPipeline(ext, asst, registry(t), service.PipelineConfig{Concurrency: 1}, zap.NewNop())
	out, err := p.Run(ctx, []service.PipelineInput{input("a.pdf")}, policy())

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Len(t, out.Receipts, 1)
	asst.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_NoSuccessfulReceiptsStillAssembles(t *testing.T) {
	ext := new(mocks.MockReceiptExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).
		Return(nil, domain.NewExtractionFailure(domain.ReasonUnreadable, errors.New("blank page")))

	p := service.NewPipeline(ext, assistant.NewHeuristic(), registry(t), service.PipelineConfig{}, zap.NewNop())
	out, err := p.Run(context.Background(), []service.PipelineInput{input("a.pdf")}, policy())

	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.Failures)
	require.NotNil(t, out.Validation)
	assert.False(t, out.Valid())
	assert.Equal(t, domain.AssistantGatheringRequired, out.AssistantStatus)
}
