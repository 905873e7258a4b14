package imei

import "context"

// Store persists IMEI approval records. Implementations must honor the
// one-live-record-per-normalized-IMEI invariant.
type Store interface {
	// Upsert writes a record, replacing any existing record for the same
	// normalized IMEI. Used to create pending entries and to revive removed ones.
	Upsert(ctx context.Context, record Record) error

	// Get returns the live record for a normalized IMEI, or
	// sentinel.ErrNotFound when none exists.
	Get(ctx context.Context, normalized string) (*Record, error)

	// FilterByStatus returns the subset of the given normalized IMEIs whose
	// live record currently has the given status.
	FilterByStatus(ctx context.Context, normalized []string, status ApprovalStatus) ([]string, error)

	// UpdateStatus moves every given normalized IMEI to the target status and
	// delta. Missing records are skipped, not errors.
	UpdateStatus(ctx context.Context, normalized []string, status ApprovalStatus, delta DeltaStatus) error
}
