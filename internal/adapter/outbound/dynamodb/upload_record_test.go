package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/upload-notifier/internal/model"
)

// fakeTable keeps items keyed by objectName the way a table with that hash
// key would.
type fakeTable struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	inputs []*dynamodb.PutItemInput
	err    error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeTable) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	key := params.Item["objectName"].(*types.AttributeValueMemberS).Value
	f.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) get(t *testing.T, key string) *model.UploadRecord {
	t.Helper()
	item, ok := f.items[key]
	if !ok {
		return nil
	}
	var record model.UploadRecord
	require.NoError(t, attributevalue.UnmarshalMap(item, &record))
	return &record
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
	t.Run("writes item", func(t *testing.T) {
		table := newFakeTable()
		adapter := NewUploadRecordAdapter(table, "upload-ledger")

		record := reportRecord("https://example.com/signed")
		require.NoError(t, adapter.Put(context.Background(), record))

		require.Len(t, table.inputs, 1)
		input := table.inputs[0]
		assert.Equal(t, "upload-ledger", *input.TableName)
		assert.Nil(t, input.ConditionExpression)
		assert.Equal(t, record, table.get(t, "report.pdf"))

		for _, attr := range []string{"objectName", "creationTime", "expirationTime", "url", "objectURI"} {
			assert.Contains(t, input.Item, attr)
		}
	})

	t.Run("second write overwrites", func(t *testing.T) {
		table := newFakeTable()
		adapter := NewUploadRecordAdapter(table, "upload-ledger")

		require.NoError(t, adapter.Put(context.Background(), reportRecord("https://example.com/first")))
		second := reportRecord("https://example.com/second")
		second.CreationTime = "2024-01-02, 00:00:00"
		require.NoError(t, adapter.Put(context.Background(), second))

		assert.Len(t, table.items, 1)
		assert.Equal(t, second, table.get(t, "report.pdf"))
	})

	t.Run("write rejected", func(t *testing.T) {
		table := newFakeTable()
		table.err = &types.ProvisionedThroughputExceededException{}
		adapter := NewUploadRecordAdapter(table, "upload-ledger")

		err := adapter.Put(context.Background(), reportRecord("https://example.com/signed"))

		var throttled *types.ProvisionedThroughputExceededException
		assert.True(t, errors.As(err, &throttled))
		assert.Contains(t, err.Error(), "report.pdf")
		assert.Empty(t, table.items)
	})
}
