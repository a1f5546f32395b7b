package model

import "time"

// UploadEvent describes one object creation or overwrite in a bucket.
type UploadEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// IssuedURL is a signed retrieval URL together with its validity window.
type IssuedURL struct {
	URL       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresAtEpoch returns the expiration instant in seconds since the epoch.
func (u *IssuedURL) ExpiresAtEpoch() int64 {
	return u.ExpiresAt.Unix()
}

// UploadRecord is the ledger entry for one object name.
type UploadRecord struct {
	ObjectName     string `json:"objectName" dynamodbav:"objectName" gorm:"column:object_name;primaryKey"`
	CreationTime   string `json:"creationTime" dynamodbav:"creationTime" gorm:"column:creation_time;not null"`
	ExpirationTime string `json:"expirationTime" dynamodbav:"expirationTime" gorm:"column:expiration_time;not null"`
	URL            string `json:"url" dynamodbav:"url" gorm:"column:url;type:text;not null"`
	ObjectURI      string `json:"objectURI" dynamodbav:"objectURI" gorm:"column:object_uri;type:text;not null"`
}

// NotificationMessage is the human-readable message published per upload.
type NotificationMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
