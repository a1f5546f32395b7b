package upload

import (
	"net/url"

	"github.com/uniedit/upload-notifier/internal/model"
)

// NewUploadEvent builds an event from a bucket notification. Keys in bucket
// notifications are form-encoded; a key that does not decode is kept as is.
func NewUploadEvent(bucket, rawKey string) model.UploadEvent {
	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		key = rawKey
	}
	return model.UploadEvent{Bucket: bucket, Key: key}
}

// ValidateEvent checks that an event identifies an object.
func ValidateEvent(event model.UploadEvent) error {
	if event.Bucket == "" {
		return ErrEmptyBucket
	}
	if event.Key == "" {
		return ErrEmptyKey
	}
	return nil
}
