package redis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/upload-notifier/internal/model"
)

type MockSetter struct {
	mock.Mock
}

func (m *MockSetter) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return redis.NewStatusResult(args.String(0), args.Error(1))
}

func reportRecord(url string) *model.UploadRecord {
	return &model.UploadRecord{
		ObjectName:     "report.pdf",
		CreationTime:   "2024-01-01, 00:00:00",
		ExpirationTime: "2024-01-08, 00:00:00",
		URL:            url,
		ObjectURI:      "s3://docs/report.pdf",
	}
}

func TestUploadRecordAdapter_Put(t *testing.T) {
	t.Run("sets json without expiry", func(t *testing.T) {
		setter := new(MockSetter)
		record := reportRecord("https://example.com/signed")

		setter.On("Set", mock.Anything, "ledger:report.pdf", mock.MatchedBy(func(v interface{}) bool {
			var got model.UploadRecord
			return json.Unmarshal(v.([]byte), &got) == nil && got == *record
		}), time.Duration(0)).Return("OK", nil)

		adapter := NewUploadRecordAdapter(setter, "ledger:")
		require.NoError(t, adapter.Put(context.Background(), record))
		setter.AssertExpectations(t)
	})

	t.Run("default prefix", func(t *testing.T) {
		adapter := NewUploadRecordAdapter(new(MockSetter), "")
		assert.Equal(t, "upload:record:report.pdf", adapter.Key("report.pdf"))
	})

	t.Run("write rejected", func(t *testing.T) {
		setter := new(MockSetter)
		cause := errors.New("OOM command not allowed")
		setter.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", cause)

		adapter := NewUploadRecordAdapter(setter, "")
		err := adapter.Put(context.Background(), reportRecord("https://example.com/signed"))
		assert.ErrorIs(t, err, cause)
	})
}

func TestUploadRecordAdapter_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis-backed ledger tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefix := "test:upload:" + time.Now().Format("150405.000000") + ":"
	adapter := NewUploadRecordAdapter(client, prefix)
	defer client.Del(context.Background(), adapter.Key("report.pdf"))

	require.NoError(t, adapter.Put(ctx, reportRecord("https://example.com/first")))
	require.NoError(t, adapter.Put(ctx, reportRecord("https://example.com/second")))

	raw, err := client.Get(ctx, adapter.Key("report.pdf")).Bytes()
	require.NoError(t, err)

	var got model.UploadRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "https://example.com/second", got.URL)

	ttl, err := client.TTL(ctx, adapter.Key("report.pdf")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
