package assistant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"claimintake/internal/assistant"
	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/port"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string { return "fake-model" }

func TestLLMAssistant_Classify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"envelope", `{"claimType":"OUTPATIENT"}`, "OUTPATIENT"},
		{"fenced", "```json\n{\"claimType\":\"HOSPITALISATION\"}\n```", "HOSPITALISATION"},
		{"bare", `"OUTPATIENT"`, "OUTPATIENT"},
		{"out of set is passed through", `{"claimType":"Hospitalization"}`, "Hospitalization"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{reply: tt.reply}
			a := assistant.NewLLMAssistant(c, zap.NewNop())

			got, err := a.Classify(context.Background(), []domain.ReceiptRecord{clinicReceipt()}, policyContext())

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, c.prompts[0], "HOSPITALISATION, OUTPATIENT")
		})
	}
}

func TestLLMAssistant_Classify_Errors(t *testing.T) {
	for name, c := range map[string]*fakeCompleter{
		"service error": {err: errors.New("503")},
		"prose":         {reply: "I think this is an outpatient claim"},
		"no claim type": {reply: `{"status":"COMPLETED"}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := assistant.NewLLMAssistant(c, zap.NewNop()).Classify(context.Background(), nil, nil)
			assert.Error(t, err)
		})
	}
}

func TestLLMAssistant_Assemble(t *testing.T) {
	c := &fakeCompleter{reply: `Here you go: {"claimType":"OUTPATIENT","claim":{"clientId":"client-1"},"status":"gathering_optional","message":"Add a referral letter if you have one."}`}
	a := assistant.NewLLMAssistant(c, zap.NewNop())

	out, err := a.Assemble(context.Background(), port.AssembleInput{
		ClaimType: domain.ClaimTypeOutpatient,
		Receipts:  []domain.ReceiptRecord{clinicReceipt()},
		Policy:    policyContext(),
		Schema:    []byte(`{"type":"object"}`),
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"clientId":"client-1"}`, string(out.Claim))
	assert.Equal(t, domain.AssistantGatheringOptional, out.Status)
	assert.Equal(t, "Add a referral letter if you have one.", out.Message)
	assert.Equal(t, "fake-model", out.ModelUsed)
	assert.Contains(t, c.prompts[0], `{"type":"object"}`)
	assert.Contains(t, c.prompts[0], "C-9")
	assert.Contains(t, c.prompts[0], "POL-1")
}

func TestLLMAssistant_Assemble_Errors(t *testing.T) {
	for name, c := range map[string]*fakeCompleter{
		"service error": {err: errors.New("timeout")},
		"no json":       {reply: "Sorry."},
		"no claim":      {reply: `{"status":"COMPLETED","message":"done"}`},
		"claim not obj": {reply: `{"claim":"see above"}`},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := assistant.NewLLMAssistant(c, zap.NewNop()).Assemble(context.Background(), port.AssembleInput{
				ClaimType: domain.ClaimTypeOutpatient,
			})
			assert.Error(t, err)
		})
	}
}

func TestParseEnvelope_UnknownStatus(t *testing.T) {
	env, err := assistant.ParseEnvelope(`{"claim":{},"status":"DONE"}`)

	require.NoError(t, err)
	assert.Equal(t, domain.AssistantGatheringRequired, env.AssistantStatus())
	assert.True(t, env.HasClaim())
}

func TestNew_Providers(t *testing.T) {
	a, err := assistant.New(&config.AssistantConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &assistant.Heuristic{}, a)

	a, err = assistant.New(&config.AssistantConfig{Provider: "heuristic"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &assistant.Heuristic{}, a)

	_, err = assistant.New(&config.AssistantConfig{Provider: "nope"}, zap.NewNop())
	assert.ErrorContains(t, err, "unknown assistant provider")

	assistant.RegisterProvider("fake", func(*config.AssistantConfig, *zap.Logger) (assistant.Completer, error) {
		return &fakeCompleter{}, nil
	})
	a, err = assistant.New(&config.AssistantConfig{Provider: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &assistant.LLMAssistant{}, a)

	assistant.RegisterProvider("broken", func(*config.AssistantConfig, *zap.Logger) (assistant.Completer, error) {
		return nil, errors.New("no key")
	})
	_, err = assistant.New(&config.AssistantConfig{Provider: "broken"}, zap.NewNop())
	assert.ErrorContains(t, err, "no key")
}
