package cases

import (
	"context"

	id "drs/pkg/domain"
)

// Store persists cases and their devices. Implementations return
// sentinel.ErrNotFound for unknown tracking ids.
type Store interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, trackingID id.TrackingID) (*Case, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*Case, error)

	AttachDevices(ctx context.Context, trackingID id.TrackingID, devices []Device) error
	SetReviewer(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID, reviewerName string) error

	UpdateStatus(ctx context.Context, trackingID id.TrackingID, status int) error
	UpdatePipelineStatus(ctx context.Context, trackingID id.TrackingID, processingStatus, reportStatus int) error
	SetSummary(ctx context.Context, trackingID id.TrackingID, summary []byte, report string, reportAllowed bool) error
}
