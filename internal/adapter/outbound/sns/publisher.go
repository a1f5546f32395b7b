package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

// PublishAPI is the subset of the SNS client used by the dispatcher.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PublisherAdapter implements NotificationPublisherPort on one SNS topic.
type PublisherAdapter struct {
	client   PublishAPI
	topicARN string
}

// NewPublisherAdapter creates a publisher for topicARN.
func NewPublisherAdapter(client PublishAPI, topicARN string) *PublisherAdapter {
	return &PublisherAdapter{client: client, topicARN: topicARN}
}

// Publish sends msg as a plain subject/body notification.
func (a *PublisherAdapter) Publish(ctx context.Context, msg *model.NotificationMessage) (string, error) {
	out, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(msg.Subject),
		Message:  aws.String(msg.Body),
	})
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", a.topicARN, err)
	}
	return aws.ToString(out.MessageId), nil
}

// Compile-time interface check
var _ outbound.NotificationPublisherPort = (*PublisherAdapter)(nil)
