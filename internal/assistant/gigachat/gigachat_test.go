package gigachat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeGenerator struct {
	system, prompt string
	reply          string
	err            error
}

func (f *fakeGenerator) complete(_ context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.reply, f.err
}

func TestCompleter_Complete(t *testing.T) {
	gen := &fakeGenerator{reply: `{"claimType":"OUTPATIENT"}`}
	c := &Completer{gen: gen, model: defaultModel}

	reply, err := c.Complete(context.Background(), "sys", "classify")

	assert.NoError(t, err)
	assert.Equal(t, `{"claimType":"OUTPATIENT"}`, reply)
	assert.Equal(t, "sys", gen.system)
	assert.Equal(t, "classify", gen.prompt)
	assert.Equal(t, "GigaChat", c.Model())
	assert.NoError(t, c.Close())
}

func TestCompleter_CompleteError(t *testing.T) {
	c := &Completer{gen: &fakeGenerator{err: errors.New("401")}, model: defaultModel}

	_, err := c.Complete(context.Background(), "sys", "p")

	assert.ErrorContains(t, err, "401")
}
