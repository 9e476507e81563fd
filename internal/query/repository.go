package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, entry Log) (Log, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Log{}, fmt.Errorf("generate query log id: %w", err)
	}

	entry.ID = id.String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO query_logs (id, user_id, query, response, model_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.UserID, entry.Query, entry.Response, entry.ModelUsed, entry.CreatedAt)
	if err != nil {
		return Log{}, fmt.Errorf("insert query log: %w", err)
	}

	return entry, nil
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// clampHistoryLimit caps oversized page requests at the maximum instead of
// shrinking them below it; non-positive values fall back to the default.
func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]Log, error) {
	limit = clampHistoryLimit(limit)

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, query, response, model_used, created_at
		FROM query_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query logs by user: %w", err)
	}
	defer rows.Close()

	logs := make([]Log, 0, limit)
	for rows.Next() {
		var entry Log
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Query, &entry.Response, &entry.ModelUsed, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan query log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate query logs: %w", err)
	}

	return logs, nil
}

func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM query_logs
			WHERE created_at < $1
			ORDER BY created_at ASC
			LIMIT $2
		)
		DELETE FROM query_logs t
		USING stale
		WHERE t.id = stale.id
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale query logs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale query logs rows affected: %w", err)
	}

	return affected, nil
}
