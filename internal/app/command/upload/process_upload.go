package upload

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/app/command"
	"github.com/uniedit/upload-notifier/internal/domain/upload"
	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
	apperrors "github.com/uniedit/upload-notifier/internal/shared/errors"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
)

// ProcessUploadCommand represents one object creation event.
type ProcessUploadCommand struct {
	Bucket string
	Key    string
}

// ProcessUploadResult is the result of processing an upload.
type ProcessUploadResult struct {
	Record    *model.UploadRecord
	Message   *model.NotificationMessage
	MessageID string
}

// ProcessUploadHandler issues a signed URL, records it and publishes a
// notification. The stages run strictly in order and the first failure
// ends the invocation.
type ProcessUploadHandler struct {
	issuer    outbound.URLIssuerPort
	store     outbound.UploadRecordPort
	publisher outbound.NotificationPublisherPort
	ttl       time.Duration
	loc       *time.Location
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewProcessUploadHandler creates a new handler.
func NewProcessUploadHandler(
	issuer outbound.URLIssuerPort,
	store outbound.UploadRecordPort,
	publisher outbound.NotificationPublisherPort,
	ttl time.Duration,
	loc *time.Location,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ProcessUploadHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessUploadHandler{
		issuer:    issuer,
		store:     store,
		publisher: publisher,
		ttl:       ttl,
		loc:       loc,
		logger:    logger,
		metrics:   m,
	}
}

// Handle executes the command.
func (h *ProcessUploadHandler) Handle(ctx context.Context, cmd ProcessUploadCommand) (result *ProcessUploadResult, err error) {
	start := time.Now()
	invocationID := uuid.NewString()
	event := model.UploadEvent{Bucket: cmd.Bucket, Key: cmd.Key}

	log := h.logger.With(
		zap.String("invocation_id", invocationID),
		zap.String("bucket", event.Bucket),
		zap.String("key", event.Key),
	)

	ctx, span := startSpan(ctx, traceSpanProcess,
		attribute.String(traceAttrInvocationID, invocationID),
		attribute.String(traceAttrBucket, event.Bucket),
		attribute.String(traceAttrKey, event.Key),
	)
	if h.metrics != nil {
		h.metrics.InvocationsInFlight.Inc()
	}
	defer func() {
		code := ""
		if err != nil {
			code = apperrors.CodeOf(err)
			span.SetAttributes(attribute.String(traceAttrErrorCode, code))
			log.Error("upload processing failed", zap.String("code", code), zap.Error(err))
		} else {
			log.Info("upload processed",
				zap.String("message_id", result.MessageID),
				zap.String("expires", result.Record.ExpirationTime),
			)
		}
		markSpanResult(span, err)
		span.End()
		if h.metrics != nil {
			h.metrics.InvocationsInFlight.Dec()
			h.metrics.RecordInvocation(code, time.Since(start))
		}
	}()

	if err := upload.ValidateEvent(event); err != nil {
		return nil, apperrors.Issuance("invalid upload event", err)
	}

	var issued *model.IssuedURL
	err = h.stage(ctx, metrics.StageIssue, traceSpanIssue, func(ctx context.Context) error {
		var issueErr error
		issued, issueErr = h.issuer.Issue(ctx, event.Bucket, event.Key, h.ttl)
		return issueErr
	})
	if err != nil {
		return nil, classify(err, apperrors.Issuance, "issue signed url")
	}
	log.Debug("signed url issued", zap.Time("expires_at", issued.ExpiresAt))

	record := upload.NewRecord(event, issued, h.loc)
	err = h.stage(ctx, metrics.StageRecord, traceSpanRecord, func(ctx context.Context) error {
		return h.store.Put(ctx, record)
	})
	if err != nil {
		return nil, classify(err, apperrors.Persistence, "record upload")
	}
	log.Debug("upload recorded", zap.String("object_uri", record.ObjectURI))

	msg := upload.NewNotification(event, record)
	var messageID string
	err = h.stage(ctx, metrics.StageDispatch, traceSpanDispatch, func(ctx context.Context) error {
		var publishErr error
		messageID, publishErr = h.publisher.Publish(ctx, msg)
		return publishErr
	})
	if err != nil {
		return nil, classify(err, apperrors.Dispatch, "dispatch notification")
	}

	return &ProcessUploadResult{Record: record, Message: msg, MessageID: messageID}, nil
}

func (h *ProcessUploadHandler) stage(ctx context.Context, stage, spanName string, fn func(context.Context) error) error {
	ctx, span := startSpan(ctx, spanName)
	start := time.Now()

	err := fn(ctx)

	markSpanResult(span, err)
	span.End()
	if h.metrics != nil {
		h.metrics.RecordStage(stage, err, time.Since(start))
	}
	return err
}

// classify wraps err in the stage's error kind unless a collaborator
// already returned a classified error.
func classify(err error, kind func(string, error) *apperrors.AppError, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return kind(message, err)
}

// Compile-time interface check
var _ command.Handler[ProcessUploadCommand, *ProcessUploadResult] = (*ProcessUploadHandler)(nil)
