package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/stageflow/pkg/eventbus"
	"github.com/dukex/stageflow/pkg/log"
	"github.com/dukex/stageflow/pkg/metrics"
)

// Option configures the optional collaborators of a service.
type Option func(*base)

// WithPublisher publishes domain events after successful writes.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(b *base) {
		b.publisher = publisher
	}
}

// WithMetrics counts writes and decisions on recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(b *base) {
		b.metrics = recorder
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

type base struct {
	publisher eventbus.EventPublisher
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func newBase(module string, opts []Option) base {
	b := base{now: time.Now}

	for _, opt := range opts {
		opt(&b)
	}

	b.logger = log.OrDefault(b.logger, module)

	return b
}

func (b *base) timestamp() time.Time {
	return b.now().UTC()
}

// publish sends event when a publisher is configured. Failures are logged, the write
// that produced the event already succeeded.
func (b *base) publish(ctx context.Context, key string, event eventbus.Event) {
	if b.publisher == nil {
		return
	}

	err := b.publisher.Publish(ctx, key, event)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}
