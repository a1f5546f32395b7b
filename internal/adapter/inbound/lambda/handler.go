package lambda

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/app/command"
	cmdupload "github.com/uniedit/upload-notifier/internal/app/command/upload"
	"github.com/uniedit/upload-notifier/internal/domain/upload"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
)

const (
	source = "lambda"

	objectCreatedPrefix = "ObjectCreated:"
)

// Processor runs the upload pipeline for one event.
type Processor = command.Handler[cmdupload.ProcessUploadCommand, *cmdupload.ProcessUploadResult]

// Handler adapts bucket notifications delivered to a function invocation.
type Handler struct {
	processor Processor
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewHandler creates a new handler.
func NewHandler(processor Processor, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{processor: processor, logger: logger, metrics: m}
}

// Handle processes every object-created record in order. Failed records do
// not stop later ones; their errors are joined so the platform redelivers
// the event.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) error {
	log := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.With(zap.String("request_id", lc.AwsRequestID))
	}

	var errs []error
	for i, record := range event.Records {
		if !strings.HasPrefix(record.EventName, objectCreatedPrefix) {
			log.Debug("skipping non-create record", zap.String("event_name", record.EventName))
			h.skipped("not_object_created")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordEventReceived(source)
		}

		ev := upload.NewUploadEvent(record.S3.Bucket.Name, record.S3.Object.Key)
		if _, err := h.processor.Handle(ctx, cmdupload.ProcessUploadCommand{Bucket: ev.Bucket, Key: ev.Key}); err != nil {
			errs = append(errs, fmt.Errorf("record %d (%s): %w", i, ev.Key, err))
		}
	}

	return errors.Join(errs...)
}

func (h *Handler) skipped(reason string) {
	if h.metrics != nil {
		h.metrics.RecordEventSkipped(source, reason)
	}
}
