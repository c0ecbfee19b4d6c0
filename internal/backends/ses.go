package backends

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"notification-engine/internal/common/errors"
)

// SESAPI is the slice of the SES client the backend needs.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESBackend delivers email through Amazon SES.
type SESBackend struct {
	client    SESAPI
	fromEmail string
}

func NewSESBackend(ctx context.Context, region, fromEmail string) (*SESBackend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESBackend{client: ses.NewFromConfig(cfg), fromEmail: fromEmail}, nil
}

// NewSESBackendWithClient wires an existing client, used by tests.
func NewSESBackendWithClient(client SESAPI, fromEmail string) *SESBackend {
	return &SESBackend{client: client, fromEmail: fromEmail}
}

func (b *SESBackend) SendEmail(ctx context.Context, email *Email) error {
	if email.To == "" {
		return errors.NewSendError("empty recipient address", false)
	}

	from := email.From
	if from == "" {
		from = b.fromEmail
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(email.Body)},
	}
	if email.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(email.HTMLBody)}
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{email.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject)},
			Body:    body,
		},
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}

	if _, err := b.client.SendEmail(ctx, input); err != nil {
		return errors.NewSendError(fmt.Sprintf("ses: %v", err), true)
	}
	return nil
}
