package notification

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
	"drs/pkg/platform/tx"
)

// PostgresStore persists notifications in the notifications table. Writes go
// through the transaction carried on the context when one is present, so a
// notification appended during a review commit rolls back with it.
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

func (s *PostgresStore) Append(ctx context.Context, n Notification) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, tracking_id, subject, message, generated_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, uuid.UUID(n.UserID), uuid.UUID(n.TrackingID), n.Subject, n.Message, n.Generated, n.Read,
	)
	return err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Notification, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, user_id, tracking_id, subject, message, generated_at, read
		FROM notifications
		WHERE user_id = $1
		ORDER BY generated_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var user, tracking uuid.UUID
		if err := rows.Scan(&n.ID, &user, &tracking, &n.Subject, &n.Message, &n.Generated, &n.Read); err != nil {
			return nil, err
		}
		n.UserID = id.UserID(user)
		n.TrackingID = id.TrackingID(tracking)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, notificationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
