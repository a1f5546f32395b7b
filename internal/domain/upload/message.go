package upload

import (
	"fmt"
	"strings"

	"github.com/uniedit/upload-notifier/internal/model"
)

const (
	subjectPrefix = "New upload: "

	// maxSubjectLength is the SNS limit on message subjects.
	maxSubjectLength = 100
)

// NewNotification renders the operator message for a recorded upload.
func NewNotification(event model.UploadEvent, record *model.UploadRecord) *model.NotificationMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "A new object was uploaded to bucket %s.\n\n", event.Bucket)
	fmt.Fprintf(&b, "Object: %s\n", record.ObjectName)
	fmt.Fprintf(&b, "Location: %s\n", record.ObjectURI)
	fmt.Fprintf(&b, "Link expires: %s\n\n", record.ExpirationTime)
	fmt.Fprintf(&b, "Download link:\n%s\n", record.URL)

	return &model.NotificationMessage{
		Subject: subject(record.ObjectName),
		Body:    b.String(),
	}
}

// subject keeps to printable ASCII and the subject length limit.
func subject(objectName string) string {
	var b strings.Builder
	b.WriteString(subjectPrefix)
	for _, r := range objectName {
		if b.Len() >= maxSubjectLength {
			break
		}
		if r < 0x20 || r > 0x7e {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}
