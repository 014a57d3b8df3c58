package ses_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/domain"
	"claimintake/internal/email/ses"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func submitted() *domain.ClaimSubmitResponse {
	return &domain.ClaimSubmitResponse{
		ClaimID:        "CLM-7F3A",
		ClaimType:      domain.ClaimTypeHospitalisation,
		SubmissionDate: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		PolicyIDs:      []string{"POL-1"},
		FinalAmount:    1200.5,
	}
}

func TestSESSender_BuildsMessage(t *testing.T) {
	client := &fakeSES{}
	sender := ses.NewSESSenderWithClient(client, "claims@example.com", "Claims Desk")

	require.NoError(t, sender.SendClaimSubmitted(context.Background(), "client@example.com", submitted()))

	require.NotNil(t, client.input)
	assert.Equal(t, "Claims Desk <claims@example.com>", *client.input.FromEmailAddress)
	assert.Equal(t, []string{"client@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Claim CLM-7F3A received", *client.input.Content.Simple.Subject.Data)
	assert.Contains(t, *client.input.Content.Simple.Body.Text.Data, "hospitalisation claim")
	assert.Contains(t, *client.input.Content.Simple.Body.Text.Data, "1200.50")
	assert.Contains(t, *client.input.Content.Simple.Body.Html.Data, "POL-1")
}

func TestSESSender_WrapsError(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	sender := ses.NewSESSenderWithClient(client, "claims@example.com", "Claims Desk")

	err := sender.SendClaimSubmitted(context.Background(), "client@example.com", submitted())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
