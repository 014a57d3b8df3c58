package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// API is the subset of the SES v2 client used by the sender.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client      API
	fromAddress string
	fromName    string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(region, fromAddress, fromName string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESSenderWithClient(sesv2.NewFromConfig(cfg), fromAddress, fromName), nil
}

// NewSESSenderWithClient creates a sender around an existing client.
func NewSESSenderWithClient(client API, fromAddress, fromName string) port.EmailSender {
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

func (s *sesSender) SendClaimSubmitted(ctx context.Context, toEmail string, resp *domain.ClaimSubmitResponse) error {
	subject := fmt.Sprintf("Claim %s received", resp.ClaimID)
	htmlBody := buildClaimSubmittedHTML(resp)
	textBody := buildClaimSubmittedText(resp)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildClaimSubmittedText(resp *domain.ClaimSubmitResponse) string {
	return fmt.Sprintf("Your %s claim has been submitted.\n\nClaim ID: %s\nPolicies: %s\nSubmitted: %s\nAmount claimed: %.2f\n",
		strings.ToLower(string(resp.ClaimType)), resp.ClaimID, strings.Join(resp.PolicyIDs, ", "),
		resp.SubmissionDate.Format("02 Jan 2006 15:04 MST"), resp.FinalAmount)
}

func buildClaimSubmittedHTML(resp *domain.ClaimSubmitResponse) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Claim submitted</h2>
  <p>Your %s claim has been submitted.</p>
  <table style="border-collapse: collapse;">
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Claim ID</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Policies</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Submitted</td><td>%s</td></tr>
    <tr><td style="padding: 4px 12px 4px 0; color: #666;">Amount claimed</td><td>%.2f</td></tr>
  </table>
</body>
</html>`,
		html.EscapeString(strings.ToLower(string(resp.ClaimType))),
		html.EscapeString(resp.ClaimID),
		html.EscapeString(strings.Join(resp.PolicyIDs, ", ")),
		resp.SubmissionDate.Format("02 Jan 2006 15:04 MST"),
		resp.FinalAmount)
}
