package audit

import (
	"context"
	"log/slog"

	"membergate/pkg/requestcontext"
)

const defaultInboxSize = 256

// Publisher accepts events from the request path and queues them for the
// worker. Emit never blocks; when the inbox is full the event is dropped
// and logged, since losing an audit line beats stalling a registration.
// A nil Publisher is a no-op so callers need no wiring in tests.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		inbox:  make(chan Event, defaultInboxSize),
		logger: logger,
	}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, event dropped", "action", event.Action)
	}
}

// Inbox exposes the queue for the worker.
func (p *Publisher) Inbox() <-chan Event {
	if p == nil {
		return nil
	}
	return p.inbox
}
