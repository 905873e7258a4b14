package quota

import (
	"context"

	id "drs/pkg/domain"
)

// Store persists per-user device quotas.
type Store interface {
	// Get returns the user's quota, or sentinel.ErrNotFound.
	Get(ctx context.Context, userID id.UserID) (*DeviceQuota, error)

	// Seed creates a quota row with the given allowances if none exists.
	Seed(ctx context.Context, userID id.UserID, regQuota, deregQuota int) error

	// Debit atomically decrements the allowance for kind by count and returns
	// the updated quota. Returns sentinel.ErrInvalidState when the allowance
	// would go negative, leaving the row unchanged.
	Debit(ctx context.Context, userID id.UserID, kind Kind, count int) (*DeviceQuota, error)
}
