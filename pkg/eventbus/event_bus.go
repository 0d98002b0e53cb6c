// Package eventbus publishes and dispatches stageflow domain events over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/stageflow/pkg/events"
)

// Event is any domain event from pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events keyed by workflow ID, so every event of one workflow lands
// on the same kafka partition and keeps its order.
type EventPublisher interface {
	Publish(ctx context.Context, workflowID string, event Event) error
}

// EventHandler receives the decoded event as a pointer to its pkg/events type, e.g.
// *events.ApprovalDecided.
type EventHandler func(ctx context.Context, event any) error

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error

	// GenerateID returns a fresh message ID.
	GenerateID() string
}
