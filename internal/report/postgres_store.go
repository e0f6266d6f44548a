package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists reports in PostgreSQL as JSONB documents with the
// fields needed for lookup and review queues pulled out into columns.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed report store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, r *Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempt_reports (id, user_id, attempt_id, risk_score, needs_review, generated_at, body)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
	`,
		r.Metadata.ReportID,
		r.Metadata.UserID,
		r.Metadata.AttemptID,
		r.RiskAnalysis.Score,
		r.Metadata.NeedsMandatoryReview,
		r.Metadata.GeneratedAt,
		body,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM attempt_reports WHERE id = $1
	`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decode(body)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM attempt_reports
		WHERE user_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Report
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r, err := decode(body)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
