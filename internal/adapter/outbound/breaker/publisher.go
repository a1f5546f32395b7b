package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/uniedit/upload-notifier/internal/model"
	"github.com/uniedit/upload-notifier/internal/port/outbound"
)

// Config contains breaker settings.
type Config struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
}

// StateObserver receives breaker state values (0=closed, 1=half-open, 2=open).
type StateObserver func(name string, state float64)

// Publisher guards a NotificationPublisherPort with a circuit breaker. While
// open it fails without calling the wrapped publisher; it never retries.
type Publisher struct {
	next    outbound.NotificationPublisherPort
	breaker *gobreaker.CircuitBreaker[string]
}

// NewPublisher wraps next.
func NewPublisher(next outbound.NotificationPublisherPort, cfg Config, observe StateObserver, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	threshold := cfg.FailureThreshold

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("dispatch breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observe != nil {
				observe(name, float64(to))
			}
		},
	}
	if observe != nil {
		observe(cfg.Name, float64(gobreaker.StateClosed))
	}

	return &Publisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Publish forwards msg through the breaker.
func (p *Publisher) Publish(ctx context.Context, msg *model.NotificationMessage) (string, error) {
	return p.breaker.Execute(func() (string, error) {
		return p.next.Publish(ctx, msg)
	})
}

// State returns the current breaker state.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

var _ outbound.NotificationPublisherPort = (*Publisher)(nil)
