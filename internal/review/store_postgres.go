package review

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	id "drs/pkg/domain"
	"drs/pkg/platform/tx"
)

// PostgresStore persists the comment ledger in the section_comments table.
// Appends join the transaction on the context when one is present.
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

func (s *PostgresStore) Append(ctx context.Context, c Comment) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO section_comments (case_id, section, status, comment, reviewer_id, reviewer_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(c.CaseID), string(c.Section), c.Status, c.Comment,
		uuid.UUID(c.ReviewerID), c.ReviewerName, c.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Current(ctx context.Context, caseID id.CaseID) (map[Section]Comment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT DISTINCT ON (section)
		       id, case_id, section, status, comment, reviewer_id, reviewer_name, created_at
		FROM section_comments
		WHERE case_id = $1
		ORDER BY section, created_at DESC, id DESC`,
		int64(caseID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Section]Comment)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out[c.Section] = c
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByCase(ctx context.Context, caseID id.CaseID) ([]Comment, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, case_id, section, status, comment, reviewer_id, reviewer_name, created_at
		FROM section_comments
		WHERE case_id = $1
		ORDER BY created_at, id`,
		int64(caseID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComment(rows *sql.Rows) (Comment, error) {
	var (
		c        Comment
		caseID   int64
		section  string
		reviewer uuid.UUID
	)
	err := rows.Scan(&c.ID, &caseID, &section, &c.Status, &c.Comment, &reviewer, &c.ReviewerName, &c.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	c.CaseID = id.CaseID(caseID)
	c.Section = Section(section)
	c.ReviewerID = id.ReviewerID(reviewer)
	return c, nil
}
