package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const weekCols = `id, week_key, status, unlocked_by, unlocked_at, created_at`

func scanWeek(row interface{ Scan(...any) error }) (*models.Week, error) {
	var w models.Week
	if err := row.Scan(&w.ID, &w.WeekKey, &w.Status, &w.UnlockedBy, &w.UnlockedAt, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// EnsureWeek creates the week at OPEN if absent. Concurrent callers hit
// the unique key, do nothing, and converge on the same row.
func EnsureWeek(ctx context.Context, q Querier, key string) (*models.Week, error) {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO weeks (week_key, status) VALUES ($1, 'OPEN')
		ON CONFLICT (week_key) DO NOTHING`, key); err != nil {
		return nil, err
	}
	return GetWeekByKey(ctx, q, key)
}

func GetWeekByKey(ctx context.Context, q Querier, key string) (*models.Week, error) {
	w, err := scanWeek(q.QueryRowContext(ctx, `SELECT `+weekCols+` FROM weeks WHERE week_key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// UnlockWeek forces the week back to OPEN and records who overrode it.
func UnlockWeek(ctx context.Context, q Querier, key string, by int64, at time.Time) (*models.Week, error) {
	w, err := scanWeek(q.QueryRowContext(ctx, `
		UPDATE weeks SET status = 'OPEN', unlocked_by = $2, unlocked_at = $3
		WHERE week_key = $1
		RETURNING `+weekCols, key, by, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// LockWeekIfOpen flips OPEN to LOCKED unless an administrator unlocked the
// week after cutoff. It reports whether this call made the change.
func LockWeekIfOpen(ctx context.Context, q Querier, id int64, cutoff time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE weeks SET status = 'LOCKED'
		WHERE id = $1 AND status = 'OPEN'
		  AND (unlocked_at IS NULL OR unlocked_at <= $2)`, id, cutoff)
	if err != nil {
		return false, err
	}
	return rowsAffected(res) == 1, nil
}

// OpenWeeksUpTo lists OPEN weeks up to key inclusive, overrides included.
func OpenWeeksUpTo(ctx context.Context, q Querier, key string) ([]models.Week, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+weekCols+` FROM weeks
		WHERE status = 'OPEN' AND week_key <= $1
		ORDER BY week_key`, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Week
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
