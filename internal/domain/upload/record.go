package upload

import (
	"time"

	"github.com/uniedit/upload-notifier/internal/model"
)

// TimestampLayout renders ledger timestamps as "2024-01-01, 00:00:00".
const TimestampLayout = "2006-01-02, 15:04:05"

// URIScheme is the scheme of canonical object URIs.
const URIScheme = "s3"

// ObjectURI returns the canonical scheme://bucket/key form of an object.
func ObjectURI(bucket, key string) string {
	return URIScheme + "://" + bucket + "/" + key
}

// FormatTimestamp renders t in loc using TimestampLayout.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout)
}

// NewRecord builds the ledger entry for an issued URL. The object key is the
// record's primary key.
func NewRecord(event model.UploadEvent, issued *model.IssuedURL, loc *time.Location) *model.UploadRecord {
	return &model.UploadRecord{
		ObjectName:     event.Key,
		CreationTime:   FormatTimestamp(issued.IssuedAt, loc),
		ExpirationTime: FormatTimestamp(issued.ExpiresAt, loc),
		URL:            issued.URL,
		ObjectURI:      ObjectURI(event.Bucket, event.Key),
	}
}
