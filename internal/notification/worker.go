package notification

import (
	"context"
	"log/slog"
)

// Sink delivers a notification to its recipient (email, SMS, push).
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// Worker consumes notifications from a channel and hands them to the sink.
// Delivery failures are logged, not retried; the stored record stays visible
// to the user regardless.
type Worker struct {
	sink   Sink
	inbox  <-chan Notification
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Notification, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-w.inbox:
			if err := w.sink.Deliver(ctx, n); err != nil {
				w.logger.ErrorContext(ctx, "notification delivery failed",
					"notification_id", n.ID,
					"user_id", n.UserID,
					"error", err,
				)
			}
		}
	}
}

// LogSink is the default delivery sink: it writes the notification to the
// structured log. Real channels plug in behind the same interface.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification delivered",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"subject", n.Subject,
	)
	return nil
}
