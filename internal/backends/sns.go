package backends

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"notification-engine/internal/common/errors"
)

// SNSAPI is the slice of the SNS client the backend needs.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSBackend delivers SMS through Amazon SNS direct-publish.
type SNSBackend struct {
	client   SNSAPI
	senderID string
}

func NewSNSBackend(ctx context.Context, region, senderID string) (*SNSBackend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SNSBackend{client: sns.NewFromConfig(cfg), senderID: senderID}, nil
}

// NewSNSBackendWithClient wires an existing client, used by tests.
func NewSNSBackendWithClient(client SNSAPI, senderID string) *SNSBackend {
	return &SNSBackend{client: client, senderID: senderID}
}

func (b *SNSBackend) SendSMS(ctx context.Context, phoneNumber, body string) error {
	if phoneNumber == "" {
		return errors.NewSendError("empty phone number", false)
	}

	input := &sns.PublishInput{
		PhoneNumber: aws.String(phoneNumber),
		Message:     aws.String(body),
	}
	if b.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(b.senderID),
			},
		}
	}

	if _, err := b.client.Publish(ctx, input); err != nil {
		return errors.NewSendError(fmt.Sprintf("sns: %v", err), true)
	}
	return nil
}
