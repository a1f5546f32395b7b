package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/uniedit/upload-notifier/internal/domain/upload"
	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

// HeadObjectAPI is the subset of the S3 client used to verify objects.
type HeadObjectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// PresignGetObjectAPI is the subset of the S3 presign client used to sign URLs.
type PresignGetObjectAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// URLIssuerAdapter implements URLIssuerPort with S3 presigned GET requests.
type URLIssuerAdapter struct {
	client       HeadObjectAPI
	presigner    PresignGetObjectAPI
	verifyObject bool
	now          func() time.Time
}

// NewURLIssuerAdapter creates a URL issuer backed by client.
func NewURLIssuerAdapter(client *s3.Client, verifyObject bool) *URLIssuerAdapter {
	return NewURLIssuer(client, s3.NewPresignClient(client), verifyObject, time.Now)
}

// NewURLIssuer creates a URL issuer from its parts. now supplies the
// issuance instant.
func NewURLIssuer(client HeadObjectAPI, presigner PresignGetObjectAPI, verifyObject bool, now func() time.Time) *URLIssuerAdapter {
	if now == nil {
		now = time.Now
	}
	return &URLIssuerAdapter{
		client:       client,
		presigner:    presigner,
		verifyObject: verifyObject,
		now:          now,
	}
}

// Issue signs a GET URL for bucket/key. The expiration is the issuance
// instant, at second resolution, plus ttl.
func (a *URLIssuerAdapter) Issue(ctx context.Context, bucket, key string, ttl time.Duration) (*model.IssuedURL, error) {
	if bucket == "" {
		return nil, upload.ErrEmptyBucket
	}
	if key == "" {
		return nil, upload.ErrEmptyKey
	}
	ttl = ttl.Truncate(time.Second)
	if ttl <= 0 {
		return nil, upload.ErrInvalidTTL
	}

	if a.verifyObject {
		_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, classify("head object", err)
		}
	}

	issuedAt := time.Unix(a.now().Unix(), 0).UTC()

	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, classify("presign download", err)
	}

	return &model.IssuedURL{
		URL:       req.URL,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// classify maps S3 failures onto the upload domain errors, keeping the cause.
func classify(op string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%s: %w: %w", op, upload.ErrObjectNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%s: %w: %w", op, upload.ErrObjectNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%s: %w: %w", op, upload.ErrAccessDenied, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// Compile-time check
var _ outbound.URLIssuerPort = (*URLIssuerAdapter)(nil)
