package outbound

import (
	"context"
	"time"

	"github.com/uniedit/upload-notifier/internal/model"
)

// URLIssuerPort issues signed retrieval URLs for stored objects.
type URLIssuerPort interface {
	// Issue signs a read URL for bucket/key valid for ttl.
	Issue(ctx context.Context, bucket, key string, ttl time.Duration) (*model.IssuedURL, error)
}

// UploadRecordPort persists upload ledger entries.
type UploadRecordPort interface {
	// Put upserts the record keyed by its object name.
	Put(ctx context.Context, record *model.UploadRecord) error
}

// NotificationPublisherPort publishes operator notifications.
type NotificationPublisherPort interface {
	// Publish sends the message and returns the sink's message id.
	Publish(ctx context.Context, msg *model.NotificationMessage) (string, error)
}
