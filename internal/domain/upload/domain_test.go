package upload

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/upload-notifier/internal/model"
)

func reportIssued() *model.IssuedURL {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &model.IssuedURL{
		URL:       "https://docs.s3.amazonaws.com/report.pdf?X-Amz-Expires=604800&X-Amz-Signature=abc",
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(604800 * time.Second),
	}
}

func TestNewUploadEvent(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"quarterly+report.pdf", "quarterly report.pdf"},
		{"reports/2024%2F01/q1.pdf", "reports/2024/01/q1.pdf"},
		{"na%C3%AFve.txt", "naïve.txt"},
		{"bad%zzescape", "bad%zzescape"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			event := NewUploadEvent("docs", tt.raw)
			assert.Equal(t, "docs", event.Bucket)
			assert.Equal(t, tt.want, event.Key)
		})
	}
}

func TestValidateEvent(t *testing.T) {
	assert.NoError(t, ValidateEvent(model.UploadEvent{Bucket: "docs", Key: "report.pdf"}))
	assert.ErrorIs(t, ValidateEvent(model.UploadEvent{Key: "report.pdf"}), ErrEmptyBucket)
	assert.ErrorIs(t, ValidateEvent(model.UploadEvent{Bucket: "docs"}), ErrEmptyKey)
}

func TestNewRecord(t *testing.T) {
	event := model.UploadEvent{Bucket: "docs", Key: "report.pdf"}
	issued := reportIssued()

	record := NewRecord(event, issued, time.UTC)

	assert.Equal(t, "report.pdf", record.ObjectName)
	assert.Equal(t, "s3://docs/report.pdf", record.ObjectURI)
	assert.Equal(t, "2024-01-01, 00:00:00", record.CreationTime)
	assert.Equal(t, "2024-01-08, 00:00:00", record.ExpirationTime)
	assert.Equal(t, issued.URL, record.URL)
	assert.Equal(t, int64(1704672000), issued.ExpiresAtEpoch())
}

func TestNewRecord_Location(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	record := NewRecord(model.UploadEvent{Bucket: "docs", Key: "report.pdf"}, reportIssued(), loc)

	assert.Equal(t, "2024-01-01, 09:00:00", record.CreationTime)
	assert.Equal(t, "2024-01-08, 09:00:00", record.ExpirationTime)
}

func TestFormatTimestamp_NilLocation(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "2024-03-05, 06:08:09", FormatTimestamp(ts, nil))
}

func TestNewNotification(t *testing.T) {
	event := model.UploadEvent{Bucket: "docs", Key: "report.pdf"}
	record := NewRecord(event, reportIssued(), time.UTC)

	msg := NewNotification(event, record)

	assert.Equal(t, "New upload: report.pdf", msg.Subject)
	assert.Contains(t, msg.Body, "report.pdf")
	assert.Contains(t, msg.Body, "2024-01-08, 00:00:00")
	assert.Contains(t, msg.Body, record.URL)
	assert.Contains(t, msg.Body, "bucket docs")

	again := NewNotification(event, record)
	assert.Equal(t, msg, again)
}

func TestNewNotification_SubjectLimits(t *testing.T) {
	event := model.UploadEvent{Bucket: "docs", Key: strings.Repeat("a", 250)}
	record := NewRecord(event, reportIssued(), time.UTC)

	msg := NewNotification(event, record)
	assert.Len(t, msg.Subject, maxSubjectLength)
	assert.True(t, strings.HasPrefix(msg.Subject, subjectPrefix))

	event = model.UploadEvent{Bucket: "docs", Key: "résumé\n.pdf"}
	record = NewRecord(event, reportIssued(), time.UTC)

	msg = NewNotification(event, record)
	assert.Equal(t, "New upload: r?sum??.pdf", msg.Subject)
	assert.Contains(t, msg.Body, "résumé")
}
