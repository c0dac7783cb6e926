package bus

import (
	"context"

	"github.com/ricesearch/irtools/internal/pkg/logger"
)

// LoggedBus wraps another Bus implementation and logs all published events to disk.
type LoggedBus struct {
	inner       Bus
	eventLogger *EventLogger
	log         *logger.Logger
}

// NewLoggedBus creates a new logged bus that wraps an inner bus.
func NewLoggedBus(inner Bus, eventLogger *EventLogger, log *logger.Logger) *LoggedBus {
	if log == nil {
		log = logger.Default()
	}
	return &LoggedBus{
		inner:       inner,
		eventLogger: eventLogger,
		log:         log,
	}
}

// Publish logs the event and then delegates to the inner bus.
// A failed disk write is reported but does not block publication.
func (b *LoggedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.eventLogger.Log(topic, event); err != nil {
		b.log.Warn("Failed to log event to disk",
			"topic", topic,
			"error", err.Error(),
		)
	}

	return b.inner.Publish(ctx, topic, event)
}

// Subscribe delegates to the inner bus.
func (b *LoggedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the inner bus first so drained handlers can still be logged, then the event log.
func (b *LoggedBus) Close() error {
	err := b.inner.Close()

	if logErr := b.eventLogger.Close(); logErr != nil {
		b.log.Warn("Failed to close event logger",
			"error", logErr.Error(),
		)
	}

	return err
}
