package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
	txcontext "drs/pkg/platform/tx"
)

// PostgresStore persists device quotas. Debits run as a single conditional
// UPDATE so the never-negative invariant holds under concurrent approvals.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, userID id.UserID) (*DeviceQuota, error) {
	query := `
		SELECT user_id, reg_quota, dereg_quota, updated_at
		FROM device_quotas
		WHERE user_id = $1
	`
	var (
		quota DeviceQuota
		uid   uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(
		&uid, &quota.RegQuota, &quota.DeregQuota, &quota.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device quota: %w", err)
	}
	quota.UserID = id.UserID(uid)
	return &quota, nil
}

func (s *PostgresStore) Seed(ctx context.Context, userID id.UserID, regQuota, deregQuota int) error {
	query := `
		INSERT INTO device_quotas (user_id, reg_quota, dereg_quota, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(userID), regQuota, deregQuota)
	if err != nil {
		return fmt.Errorf("seed device quota: %w", err)
	}
	return nil
}

func (s *PostgresStore) Debit(ctx context.Context, userID id.UserID, kind Kind, count int) (*DeviceQuota, error) {
	column := "reg_quota"
	if kind == KindDeregistration {
		column = "dereg_quota"
	}

	// The WHERE clause refuses debits that would go negative; zero rows
	// updated means either no quota row or insufficient allowance.
	query := fmt.Sprintf(`
		UPDATE device_quotas
		SET %s = %s - $2, updated_at = NOW()
		WHERE user_id = $1 AND %s >= $2
		RETURNING user_id, reg_quota, dereg_quota, updated_at
	`, column, column, column)

	var (
		quota DeviceQuota
		uid   uuid.UUID
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID), count).Scan(
		&uid, &quota.RegQuota, &quota.DeregQuota, &quota.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.Get(ctx, userID); errors.Is(getErr, sentinel.ErrNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, sentinel.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("debit device quota: %w", err)
	}
	quota.UserID = id.UserID(uid)
	return &quota, nil
}
