package audit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	"drs/pkg/platform/tx"
)

// PostgresStore persists the case trail. Appends join the transaction on the
// context when present so trail entries commit with the transition they
// describe.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, e Event) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO case_trail (occurred_at, tracking_id, action, actor_id, from_status, to_status, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Timestamp, uuid.UUID(e.TrackingID), string(e.Action), e.ActorID, e.FromStatus, e.ToStatus, e.Detail, e.RequestID,
	)
	return err
}

func (s *PostgresStore) ListByTracking(ctx context.Context, trackingID id.TrackingID) ([]Event, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT occurred_at, tracking_id, action, actor_id, from_status, to_status, detail, request_id
		FROM case_trail
		WHERE tracking_id = $1
		ORDER BY occurred_at`,
		uuid.UUID(trackingID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var tracking uuid.UUID
		var action string
		if err := rows.Scan(&e.Timestamp, &tracking, &action, &e.ActorID, &e.FromStatus, &e.ToStatus, &e.Detail, &e.RequestID); err != nil {
			return nil, err
		}
		e.TrackingID = id.TrackingID(tracking)
		e.Action = Action(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
