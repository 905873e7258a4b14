package imei

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
	txcontext "drs/pkg/platform/tx"
)

// PostgresStore persists IMEI approval records. The normalized IMEI is the
// primary key, which enforces the one-live-record invariant at the schema level.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Upsert(ctx context.Context, record Record) error {
	query := `
		INSERT INTO imei_records (normalized_imei, status, delta_status, case_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (normalized_imei) DO UPDATE
		SET status = EXCLUDED.status,
		    delta_status = EXCLUDED.delta_status,
		    case_id = EXCLUDED.case_id,
		    updated_at = NOW()
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		record.Normalized, string(record.Status), string(record.Delta), int64(record.CaseID),
	)
	if err != nil {
		return fmt.Errorf("upsert imei record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, normalized string) (*Record, error) {
	query := `
		SELECT normalized_imei, status, delta_status, case_id, updated_at
		FROM imei_records
		WHERE normalized_imei = $1
	`
	var (
		record Record
		st     string
		delta  string
		caseID int64
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, normalized).Scan(
		&record.Normalized, &st, &delta, &caseID, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get imei record: %w", err)
	}
	record.Status = ApprovalStatus(st)
	record.Delta = DeltaStatus(delta)
	record.CaseID = id.CaseID(caseID)
	return &record, nil
}

func (s *PostgresStore) FilterByStatus(ctx context.Context, normalized []string, status ApprovalStatus) ([]string, error) {
	if len(normalized) == 0 {
		return nil, nil
	}
	query := `
		SELECT normalized_imei
		FROM imei_records
		WHERE normalized_imei = ANY($1) AND status = $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, pq.Array(normalized), string(status))
	if err != nil {
		return nil, fmt.Errorf("filter imei records: %w", err)
	}
	defer rows.Close()

	var matched []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan imei record: %w", err)
		}
		matched = append(matched, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate imei records: %w", err)
	}
	return matched, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, normalized []string, status ApprovalStatus, delta DeltaStatus) error {
	if len(normalized) == 0 {
		return nil
	}
	query := `
		UPDATE imei_records
		SET status = $2, delta_status = $3, updated_at = NOW()
		WHERE normalized_imei = ANY($1)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(normalized), string(status), string(delta))
	if err != nil {
		return fmt.Errorf("update imei records: %w", err)
	}
	return nil
}
