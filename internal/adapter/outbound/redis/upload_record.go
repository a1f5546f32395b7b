package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

const defaultRecordKeyPrefix = "upload:record:"

// Setter is the subset of the Redis client used by the ledger.
type Setter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// UploadRecordAdapter implements UploadRecordPort as one JSON string per
// object name. SET replaces the stored value atomically.
type UploadRecordAdapter struct {
	client    Setter
	keyPrefix string
}

// NewUploadRecordAdapter creates a new Redis upload record adapter.
func NewUploadRecordAdapter(client Setter, keyPrefix string) *UploadRecordAdapter {
	if keyPrefix == "" {
		keyPrefix = defaultRecordKeyPrefix
	}
	return &UploadRecordAdapter{client: client, keyPrefix: keyPrefix}
}

// Key returns the Redis key holding the record for objectName.
func (a *UploadRecordAdapter) Key(objectName string) string {
	return a.keyPrefix + objectName
}

// Put stores the record without expiry.
func (a *UploadRecordAdapter) Put(ctx context.Context, record *model.UploadRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal upload record: %w", err)
	}
	if err := a.client.Set(ctx, a.Key(record.ObjectName), data, 0).Err(); err != nil {
		return fmt.Errorf("set upload record %q: %w", record.ObjectName, err)
	}
	return nil
}

// Compile-time interface check
var _ outbound.UploadRecordPort = (*UploadRecordAdapter)(nil)
