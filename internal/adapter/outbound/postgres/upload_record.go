package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

// UploadRecordAdapter implements UploadRecordPort on a table whose primary
// key is object_name.
type UploadRecordAdapter struct {
	db    *gorm.DB
	table string
}

// NewUploadRecordAdapter creates a new postgres upload record adapter.
func NewUploadRecordAdapter(db *gorm.DB, table string) *UploadRecordAdapter {
	return &UploadRecordAdapter{db: db, table: table}
}

// Migrate creates or updates the ledger table.
func (a *UploadRecordAdapter) Migrate(ctx context.Context) error {
	if err := a.db.WithContext(ctx).Table(a.table).AutoMigrate(&model.UploadRecord{}); err != nil {
		return fmt.Errorf("migrate %s: %w", a.table, err)
	}
	return nil
}

// Put inserts the record or replaces every column of the existing row.
func (a *UploadRecordAdapter) Put(ctx context.Context, record *model.UploadRecord) error {
	err := a.db.WithContext(ctx).
		Table(a.table).
		Clauses(upsertClause()).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("upsert upload record %q: %w", record.ObjectName, err)
	}
	return nil
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_name"}},
		UpdateAll: true,
	}
}

var _ outbound.UploadRecordPort = (*UploadRecordAdapter)(nil)
