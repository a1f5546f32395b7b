package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/model"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg *model.NotificationMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func TestPublisher(t *testing.T) {
	msg := &model.NotificationMessage{Subject: "s", Body: "b"}
	cfg := Config{Name: "sns", FailureThreshold: 2, OpenTimeout: time.Minute}

	t.Run("passes through", func(t *testing.T) {
		next := new(MockPublisher)
		next.On("Publish", mock.Anything, msg).Return("msg-1", nil)

		p := NewPublisher(next, cfg, nil, zap.NewNop())
		id, err := p.Publish(context.Background(), msg)

		require.NoError(t, err)
		assert.Equal(t, "msg-1", id)
		assert.Equal(t, gobreaker.StateClosed, p.State())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		next := new(MockPublisher)
		cause := errors.New("throttled")
		next.On("Publish", mock.Anything, msg).Return("", cause).Times(2)

		states := map[string]float64{}
		observe := func(name string, state float64) { states[name] = state }

		p := NewPublisher(next, cfg, observe, zap.NewNop())
		assert.Equal(t, float64(0), states["sns"])

		for i := 0; i < 2; i++ {
			_, err := p.Publish(context.Background(), msg)
			assert.ErrorIs(t, err, cause)
		}
		assert.Equal(t, gobreaker.StateOpen, p.State())
		assert.Equal(t, float64(2), states["sns"])

		_, err := p.Publish(context.Background(), msg)
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		next.AssertNumberOfCalls(t, "Publish", 2)
	})

	t.Run("success resets failures", func(t *testing.T) {
		next := new(MockPublisher)
		cause := errors.New("throttled")
		next.On("Publish", mock.Anything, msg).Return("", cause).Once()
		next.On("Publish", mock.Anything, msg).Return("msg-2", nil).Once()
		next.On("Publish", mock.Anything, msg).Return("", cause).Once()

		p := NewPublisher(next, cfg, nil, nil)
		for i := 0; i < 3; i++ {
			_, _ = p.Publish(context.Background(), msg)
		}
		assert.Equal(t, gobreaker.StateClosed, p.State())
	})
}
