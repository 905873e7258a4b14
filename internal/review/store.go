package review

import (
	"context"

	id "drs/pkg/domain"
)

// Store is the append-only section comment ledger. Entries are never updated
// or deleted.
type Store interface {
	Append(ctx context.Context, c Comment) error
	// Current returns the most recent entry per section. Sections without an
	// entry are absent from the map.
	Current(ctx context.Context, caseID id.CaseID) (map[Section]Comment, error)
	ListByCase(ctx context.Context, caseID id.CaseID) ([]Comment, error)
}
