package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher's inbox into a store. Append failures are
// logged and skipped; the trail tolerates gaps, the pipeline does not
// tolerate a wedged worker.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "audit append failed", "action", event.Action, "error", err)
			}
		}
	}
}
