package audit

import (
	"context"

	id "drs/pkg/domain"
)

// Store is an append-only trail of case events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTracking(ctx context.Context, trackingID id.TrackingID) ([]Event, error)
}
