package extractor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"claimintake/internal/extractor"
	"claimintake/internal/port"
	"claimintake/mocks"
)

func providerOutput(model string) *port.ProviderOutput {
	return &port.ProviderOutput{
		Fields:    port.RawReceipt{Hospital: "Raffles Hospital"},
		ModelUsed: model,
	}
}

func newFallback(providers []port.DocumentExtractor, names []string) *extractor.FallbackExtractor {
	return extractor.NewFallbackExtractor(providers, names, zap.NewNop())
}

func TestFallbackExtractor_FirstSucceeds(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(providerOutput("azurecu/hclaim"), nil)

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	result, err := fe.Extract(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, "azurecu/hclaim", result.ModelUsed)
	p2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFallbackExtractor_FirstFails_SecondSucceeds(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, errors.New("generic error"))
	p2.On("Extract", mock.Anything, input).Return(providerOutput("claude"), nil)

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	result, err := fe.Extract(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, "claude", result.ModelUsed)
}

func TestFallbackExtractor_TwoRateLimited_ThirdSucceeds(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)
	p3 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("azurecu", errors.New("429"), 60*time.Second))
	p2.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("claude", errors.New("429"), 30*time.Second))
	p3.On("Extract", mock.Anything, input).Return(providerOutput("openai"), nil)

	fe := newFallback([]port.DocumentExtractor{p1, p2, p3}, []string{"azurecu", "claude", "openai"})

	result, err := fe.Extract(context.Background(), input)

	assert.NoError(t, err)
	assert.Equal(t, "openai", result.ModelUsed)
}

func TestFallbackExtractor_AllRateLimited(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("azurecu", errors.New("429"), 60*time.Second))
	p2.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("claude", errors.New("429"), 30*time.Second))

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	result, err := fe.Extract(context.Background(), input)

	assert.Nil(t, result)
	var rlErr *extractor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "all", rlErr.Provider)
}

func TestFallbackExtractor_AllFail_NonRateLimit(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, errors.New("error 1"))
	p2.On("Extract", mock.Anything, input).Return(nil, errors.New("error 2"))

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	result, err := fe.Extract(context.Background(), input)

	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all extraction providers failed")
	assert.Contains(t, err.Error(), "error 2")

	var rlErr *extractor.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackExtractor_SkipsOpenCircuit(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("azurecu", errors.New("429"), 60*time.Second)).Once()
	p2.On("Extract", mock.Anything, input).Return(providerOutput("claude"), nil)

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	_, err := fe.Extract(context.Background(), input)
	require.NoError(t, err)

	result, err := fe.Extract(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "claude", result.ModelUsed)

	p1.AssertNumberOfCalls(t, "Extract", 1)
}

func TestFallbackExtractor_CircuitAutoCloses(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Return(nil, extractor.NewRateLimitError("azurecu", errors.New("429"), 1*time.Second)).Once()
	p2.On("Extract", mock.Anything, input).Return(providerOutput("claude"), nil).Once()

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	result, err := fe.Extract(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "claude", result.ModelUsed)

	time.Sleep(1100 * time.Millisecond)

	p1.On("Extract", mock.Anything, input).Return(providerOutput("azurecu/hclaim"), nil).Once()

	result, err = fe.Extract(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "azurecu/hclaim", result.ModelUsed)
}

func TestFallbackExtractor_ContextCancelledStops(t *testing.T) {
	p1 := new(mocks.MockDocumentExtractor)
	p2 := new(mocks.MockDocumentExtractor)

	ctx, cancel := context.WithCancel(context.Background())
	input := pdfInput()
	p1.On("Extract", mock.Anything, input).Run(func(mock.Arguments) { cancel() }).Return(nil, context.Canceled)

	fe := newFallback([]port.DocumentExtractor{p1, p2}, []string{"azurecu", "claude"})

	_, err := fe.Extract(ctx, input)

	assert.ErrorIs(t, err, context.Canceled)
	p2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}
