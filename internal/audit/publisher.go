package audit

import (
	"context"

	id "drs/pkg/domain"
	"drs/pkg/requestcontext"
)

// Publisher records case events. It is append-only and writes through the
// store so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) Trail(ctx context.Context, trackingID id.TrackingID) ([]Event, error) {
	return p.store.ListByTracking(ctx, trackingID)
}
