package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

// PutItemAPI is the subset of the DynamoDB client used by the ledger.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// UploadRecordAdapter implements UploadRecordPort on a DynamoDB table keyed
// by objectName.
type UploadRecordAdapter struct {
	client    PutItemAPI
	tableName string
}

// NewUploadRecordAdapter creates a new DynamoDB upload record adapter.
func NewUploadRecordAdapter(client PutItemAPI, tableName string) *UploadRecordAdapter {
	return &UploadRecordAdapter{
		client:    client,
		tableName: tableName,
	}
}

// Put writes the record unconditionally, replacing any item with the same key.
func (a *UploadRecordAdapter) Put(ctx context.Context, record *model.UploadRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal upload record: %w", err)
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put upload record %q: %w", record.ObjectName, err)
	}
	return nil
}

// Compile-time interface check
var _ outbound.UploadRecordPort = (*UploadRecordAdapter)(nil)
