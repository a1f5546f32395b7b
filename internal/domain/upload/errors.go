package upload

import "errors"

var (
	// ErrEmptyBucket is returned when an event carries no bucket name.
	ErrEmptyBucket = errors.New("bucket name is empty")

	// ErrEmptyKey is returned when an event carries no object key.
	ErrEmptyKey = errors.New("object key is empty")

	// ErrInvalidTTL is returned when the signed URL lifetime is not positive.
	ErrInvalidTTL = errors.New("signed url ttl must be positive")

	// ErrObjectNotFound is returned when the uploaded object no longer exists.
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied is returned when the handler may not read or sign the object.
	ErrAccessDenied = errors.New("access to object denied")
)
