package cases

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "drs/pkg/domain"
	"drs/pkg/platform/sentinel"
	"drs/pkg/platform/tx"
)

// PostgresStore persists cases in the cases and devices tables. Devices keep
// their IMEIs in a text array column. Writes join the transaction on the
// context when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *Case) error {
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO cases (tracking_id, case_type, channel, user_id, user_name, status, processing_status, report_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id`,
		uuid.UUID(c.TrackingID), string(c.Type), string(c.Channel), uuid.UUID(c.UserID), c.UserName,
		c.Status, c.ProcessingStatus, c.ReportStatus, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, trackingID id.TrackingID) (*Case, error) {
	var (
		c        Case
		tracking uuid.UUID
		user     uuid.UUID
		reviewer uuid.NullUUID
		caseType string
		channel  string
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, tracking_id, case_type, channel, user_id, user_name, reviewer_id, reviewer_name,
		       status, processing_status, report_status, summary, report, report_allowed,
		       created_at, updated_at
		FROM cases
		WHERE tracking_id = $1`,
		uuid.UUID(trackingID),
	).Scan(
		&c.ID, &tracking, &caseType, &channel, &user, &c.UserName, &reviewer, &c.ReviewerName,
		&c.Status, &c.ProcessingStatus, &c.ReportStatus, &c.Summary, &c.Report, &c.ReportAllowed,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.TrackingID = id.TrackingID(tracking)
	c.Type = Type(caseType)
	c.Channel = Channel(channel)
	c.UserID = id.UserID(user)
	if reviewer.Valid {
		c.ReviewerID = id.ReviewerID(reviewer.UUID)
	}

	devices, err := s.loadDevices(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Devices = devices
	return &c, nil
}

func (s *PostgresStore) loadDevices(ctx context.Context, caseID id.CaseID) ([]Device, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, brand, model_name, device_count, imeis
		FROM devices
		WHERE case_id = $1
		ORDER BY id`,
		int64(caseID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Device
	for rows.Next() {
		var (
			d     Device
			imeis pq.StringArray
		)
		if err := rows.Scan(&d.ID, &d.Brand, &d.ModelName, &d.Count, &imeis); err != nil {
			return nil, err
		}
		for _, raw := range imeis {
			d.IMEIs = append(d.IMEIs, id.IMEI(raw))
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*Case, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT tracking_id
		FROM cases
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		uuid.UUID(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trackingIDs []id.TrackingID
	for rows.Next() {
		var tracking uuid.UUID
		if err := rows.Scan(&tracking); err != nil {
			return nil, err
		}
		trackingIDs = append(trackingIDs, id.TrackingID(tracking))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Case, 0, len(trackingIDs))
	for _, trackingID := range trackingIDs {
		c, err := s.Get(ctx, trackingID)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *PostgresStore) AttachDevices(ctx context.Context, trackingID id.TrackingID, devices []Device) error {
	var caseID int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id FROM cases WHERE tracking_id = $1`, uuid.UUID(trackingID),
	).Scan(&caseID)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return err
	}

	for _, d := range devices {
		imeis := make([]string, 0, len(d.IMEIs))
		for _, imei := range d.IMEIs {
			imeis = append(imeis, string(imei))
		}
		_, err := s.conn(ctx).ExecContext(ctx, `
			INSERT INTO devices (case_id, brand, model_name, device_count, imeis)
			VALUES ($1, $2, $3, $4, $5)`,
			caseID, d.Brand, d.ModelName, d.Count, pq.Array(imeis),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SetReviewer(ctx context.Context, trackingID id.TrackingID, reviewerID id.ReviewerID, reviewerName string) error {
	return s.update(ctx, trackingID, `
		UPDATE cases SET reviewer_id = $2, reviewer_name = $3, updated_at = NOW() WHERE tracking_id = $1`,
		uuid.UUID(reviewerID), reviewerName)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, trackingID id.TrackingID, status int) error {
	return s.update(ctx, trackingID, `
		UPDATE cases SET status = $2, updated_at = NOW() WHERE tracking_id = $1`,
		status)
}

func (s *PostgresStore) UpdatePipelineStatus(ctx context.Context, trackingID id.TrackingID, processingStatus, reportStatus int) error {
	return s.update(ctx, trackingID, `
		UPDATE cases SET processing_status = $2, report_status = $3, updated_at = NOW() WHERE tracking_id = $1`,
		processingStatus, reportStatus)
}

func (s *PostgresStore) SetSummary(ctx context.Context, trackingID id.TrackingID, summary []byte, report string, reportAllowed bool) error {
	return s.update(ctx, trackingID, `
		UPDATE cases SET summary = $2, report = $3, report_allowed = $4, updated_at = NOW() WHERE tracking_id = $1`,
		summary, report, reportAllowed)
}

func (s *PostgresStore) update(ctx context.Context, trackingID id.TrackingID, query string, args ...any) error {
	all := append([]any{uuid.UUID(trackingID)}, args...)
	res, err := s.conn(ctx).ExecContext(ctx, query, all...)
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
