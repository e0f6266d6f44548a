package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists trust scores in PostgreSQL. Tables are created by
// the migrations in migrations/.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed trust store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Current(ctx context.Context, userID string) (float64, error) {
	var score float64
	err := s.db.QueryRowContext(ctx, `
		SELECT score FROM trust_scores WHERE user_id = $1
	`, userID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get trust score: %w", err)
	}
	return score, nil
}

// Update runs in one transaction holding the user's trust_scores row lock, so
// writers in other processes queue behind it instead of overwriting it.
func (s *PostgresStore) Update(ctx context.Context, userID, attemptID string, initial float64, fn UpdateFunc) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin trust update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trust_scores (user_id, score, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, initial)
	if err != nil {
		return nil, fmt.Errorf("failed to seed trust score: %w", err)
	}

	var old float64
	err = tx.QueryRowContext(ctx, `
		SELECT score FROM trust_scores WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&old)
	if err != nil {
		return nil, fmt.Errorf("failed to lock trust score: %w", err)
	}

	if attemptID != "" {
		var scored bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM trust_history WHERE attempt_id = $1)
		`, attemptID).Scan(&scored)
		if err != nil {
			return nil, fmt.Errorf("failed to check attempt: %w", err)
		}
		if scored {
			return nil, ErrAttemptAlreadyScored
		}
	}

	snap, err := fn(old)
	if err != nil {
		return nil, err
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO trust_history
			(user_id, attempt_id, previous_score, new_score, risk_score, change, trend, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		snap.UserID,
		snap.AttemptID,
		snap.PreviousScore,
		snap.NewScore,
		snap.RiskScore,
		snap.Change,
		string(snap.Trend),
		snap.CreatedAt,
	).Scan(&snap.ID)
	if err != nil {
		// Same attempt for a different user, racing on the unique index.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrAttemptAlreadyScored
		}
		return nil, fmt.Errorf("failed to record trust history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE trust_scores SET score = $2, updated_at = $3 WHERE user_id = $1
	`, userID, snap.NewScore, snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update trust score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trust update: %w", err)
	}
	return snap, nil
}

func (s *PostgresStore) History(ctx context.Context, q HistoryQuery) ([]*Snapshot, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, user_id, COALESCE(attempt_id, ''), previous_score, new_score,
		risk_score, change, trend, created_at
		FROM trust_history WHERE user_id = $1`
	args := []interface{}{q.UserID}
	argIdx := 2

	if !q.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, q.From)
		argIdx++
	}
	if !q.To.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, q.To)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trust history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var trend string
		if err := rows.Scan(
			&snap.ID, &snap.UserID, &snap.AttemptID, &snap.PreviousScore, &snap.NewScore,
			&snap.RiskScore, &snap.Change, &trend, &snap.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trust history: %w", err)
		}
		snap.Trend = Trend(trend)
		results = append(results, &snap)
	}
	return results, rows.Err()
}
