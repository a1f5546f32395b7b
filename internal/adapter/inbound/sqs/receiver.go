package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uniedit/upload-notifier/internal/app/command"
	cmdupload "github.com/uniedit/upload-notifier/internal/app/command/upload"
	"github.com/uniedit/upload-notifier/internal/domain/upload"
	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
)

const (
	source = "sqs"

	testEvent           = "s3:TestEvent"
	objectCreatedPrefix = "ObjectCreated:"

	receiveBackoff = time.Second
)

// Skip reasons.
const (
	reasonTestEvent        = "test_event"
	reasonPoison           = "poison"
	reasonNotObjectCreated = "not_object_created"
)

// API is the subset of the SQS client used by the receiver.
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Processor runs the upload pipeline for one event.
type Processor = command.Handler[cmdupload.ProcessUploadCommand, *cmdupload.ProcessUploadResult]

// Config contains queue polling settings.
type Config struct {
	QueueURL          string
	MaxMessages       int32
	WaitTimeSeconds   int32
	VisibilityTimeout int32
	Concurrency       int
}

// Receiver long-polls a queue subscribed to bucket notifications. A message
// is deleted once every upload it carries has been processed; otherwise it
// becomes visible again after the visibility timeout.
type Receiver struct {
	client    API
	processor Processor
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver creates a new receiver.
func NewReceiver(client API, processor Processor, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Receiver {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Receiver{
		client:    client,
		processor: processor,
		cfg:       cfg,
		logger:    logger.With(zap.String("queue_url", cfg.QueueURL)),
		metrics:   m,
	}
}

// Start runs the poll loop in the background until Shutdown.
func (r *Receiver) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.Run(ctx)
	}()
}

// Shutdown stops polling and waits for in-flight messages.
func (r *Receiver) Shutdown(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled.
func (r *Receiver) Run(ctx context.Context) error {
	r.logger.Info("sqs receiver started", zap.Int("concurrency", r.cfg.Concurrency))
	defer r.logger.Info("sqs receiver stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn("receive messages failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
		}
	}
}

// poll receives one batch and processes it. Messages already received are
// processed to completion even when ctx is cancelled.
func (r *Receiver) poll(ctx context.Context) error {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.cfg.QueueURL),
		MaxNumberOfMessages: r.cfg.MaxMessages,
		WaitTimeSeconds:     r.cfg.WaitTimeSeconds,
		VisibilityTimeout:   r.cfg.VisibilityTimeout,
	})
	if err != nil {
		return fmt.Errorf("receive message: %w", err)
	}

	workCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for _, msg := range out.Messages {
		g.Go(func() error {
			r.handleMessage(workCtx, msg)
			return nil
		})
	}
	return g.Wait()
}

func (r *Receiver) handleMessage(ctx context.Context, msg types.Message) {
	log := r.logger.With(zap.String("message_id", aws.ToString(msg.MessageId)))

	uploads, reason, err := parseBody(aws.ToString(msg.Body))
	if err != nil {
		log.Warn("deleting unparseable message", zap.Error(err))
		r.skipped(reasonPoison)
		r.deleteMessage(ctx, msg, log)
		return
	}
	if reason != "" {
		log.Debug("acknowledging message without uploads", zap.String("reason", reason))
		r.skipped(reason)
		r.deleteMessage(ctx, msg, log)
		return
	}

	failed := false
	for _, ev := range uploads {
		if r.metrics != nil {
			r.metrics.RecordEventReceived(source)
		}
		if _, err := r.processor.Handle(ctx, cmdupload.ProcessUploadCommand{Bucket: ev.Bucket, Key: ev.Key}); err != nil {
			failed = true
		}
	}
	if failed {
		log.Warn("leaving message for redelivery", zap.Int("uploads", len(uploads)))
		return
	}

	r.deleteMessage(ctx, msg, log)
}

func (r *Receiver) deleteMessage(ctx context.Context, msg types.Message, log *zap.Logger) {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.cfg.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		log.Warn("delete message failed", zap.Error(err))
	}
}

func (r *Receiver) skipped(reason string) {
	if r.metrics != nil {
		r.metrics.RecordEventSkipped(source, reason)
	}
}

// testNotification is the body S3 sends when a notification is configured.
type testNotification struct {
	Event string `json:"Event"`
}

var errNoRecords = errors.New("message carries no records")

// parseBody extracts the uploads from a bucket notification body. A non-empty
// reason means the message is valid but has nothing to process.
func parseBody(body string) ([]model.UploadEvent, string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, "", errNoRecords
	}

	var probe testNotification
	if err := json.Unmarshal([]byte(body), &probe); err != nil {
		return nil, "", fmt.Errorf("decode notification: %w", err)
	}
	if probe.Event == testEvent {
		return nil, reasonTestEvent, nil
	}

	var event events.S3Event
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return nil, "", fmt.Errorf("decode notification: %w", err)
	}
	if len(event.Records) == 0 {
		return nil, "", errNoRecords
	}

	var uploads []model.UploadEvent
	for _, record := range event.Records {
		if !strings.HasPrefix(record.EventName, objectCreatedPrefix) {
			continue
		}
		uploads = append(uploads, upload.NewUploadEvent(record.S3.Bucket.Name, record.S3.Object.Key))
	}
	if len(uploads) == 0 {
		return nil, reasonNotObjectCreated, nil
	}
	return uploads, "", nil
}
