package lambda

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	cmdupload "github.com/uniedit/upload-notifier/internal/app/command/upload"
	apperrors "github.com/uniedit/upload-notifier/internal/shared/errors"
	"github.com/uniedit/upload-notifier/internal/shared/metrics"
)

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Handle(ctx context.Context, cmd cmdupload.ProcessUploadCommand) (*cmdupload.ProcessUploadResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cmdupload.ProcessUploadResult), args.Error(1)
}

func s3Record(eventName, bucket, key string) events.S3EventRecord {
	return events.S3EventRecord{
		EventSource: "aws:s3",
		EventName:   eventName,
		S3: events.S3Entity{
			Bucket: events.S3Bucket{Name: bucket},
			Object: events.S3Object{Key: key},
		},
	}
}

func TestHandler_Handle(t *testing.T) {
	t.Run("decodes keys and processes in order", func(t *testing.T) {
		processor := new(MockProcessor)
		var seen []string
		processor.On("Handle", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				seen = append(seen, args.Get(1).(cmdupload.ProcessUploadCommand).Key)
			}).
			Return(&cmdupload.ProcessUploadResult{}, nil)

		m := metrics.New("test", prometheus.NewRegistry())
		h := NewHandler(processor, zap.NewNop(), m)

		err := h.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
			s3Record("ObjectCreated:Put", "docs", "quarterly+report.pdf"),
			s3Record("ObjectRemoved:Delete", "docs", "old.pdf"),
			s3Record("ObjectCreated:CompleteMultipartUpload", "docs", "a%2Fb.txt"),
		}})

		assert.NoError(t, err)
		assert.Equal(t, []string{"quarterly report.pdf", "a/b.txt"}, seen)
		processor.AssertCalled(t, "Handle", mock.Anything, cmdupload.ProcessUploadCommand{Bucket: "docs", Key: "quarterly report.pdf"})
		assert.Equal(t, float64(2), testutil.ToFloat64(m.EventsReceivedTotal.WithLabelValues(source)))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsSkippedTotal.WithLabelValues(source, "not_object_created")))
	})

	t.Run("joins failures and continues", func(t *testing.T) {
		processor := new(MockProcessor)
		failure := apperrors.Dispatch("dispatch notification", errors.New("throttled"))
		processor.On("Handle", mock.Anything, cmdupload.ProcessUploadCommand{Bucket: "docs", Key: "a.txt"}).Return(nil, failure)
		processor.On("Handle", mock.Anything, cmdupload.ProcessUploadCommand{Bucket: "docs", Key: "b.txt"}).Return(&cmdupload.ProcessUploadResult{}, nil)

		ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{AwsRequestID: "req-1"})
		err := NewHandler(processor, nil, nil).Handle(ctx, events.S3Event{Records: []events.S3EventRecord{
			s3Record("ObjectCreated:Put", "docs", "a.txt"),
			s3Record("ObjectCreated:Put", "docs", "b.txt"),
		}})

		assert.ErrorIs(t, err, apperrors.ErrDispatch)
		assert.Contains(t, err.Error(), "a.txt")
		processor.AssertNumberOfCalls(t, "Handle", 2)
	})

	t.Run("empty event", func(t *testing.T) {
		processor := new(MockProcessor)
		assert.NoError(t, NewHandler(processor, nil, nil).Handle(context.Background(), events.S3Event{}))
		processor.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	})
}
