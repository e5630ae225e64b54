package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const monthCols = `id, month_key, start_date, end_date, status, locked_by, locked_at, created_at`

func scanMonth(row interface{ Scan(...any) error }) (*models.Month, error) {
	var m models.Month
	if err := row.Scan(&m.ID, &m.MonthKey, &m.StartDate, &m.EndDate, &m.Status, &m.LockedBy, &m.LockedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// EnsureMonth creates the month at OPEN if absent; start and end are
// YYYY-MM-DD civil dates.
func EnsureMonth(ctx context.Context, q Querier, key, start, end string) (*models.Month, error) {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO months (month_key, start_date, end_date, status) VALUES ($1, $2, $3, 'OPEN')
		ON CONFLICT (month_key) DO NOTHING`, key, start, end); err != nil {
		return nil, err
	}
	return GetMonthByKey(ctx, q, key)
}

func GetMonthByKey(ctx context.Context, q Querier, key string) (*models.Month, error) {
	m, err := scanMonth(q.QueryRowContext(ctx, `SELECT `+monthCols+` FROM months WHERE month_key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// GetMonthForShare blocks a concurrent lock flip until tx ends.
func GetMonthForShare(ctx context.Context, tx *sql.Tx, key string) (*models.Month, error) {
	m, err := scanMonth(tx.QueryRowContext(ctx, `SELECT `+monthCols+` FROM months WHERE month_key = $1 FOR SHARE`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func SetMonthStatus(ctx context.Context, q Querier, key string, status models.PeriodStatus, by int64, at time.Time) (*models.Month, error) {
	var lockedBy *int64
	var lockedAt *time.Time
	if status == models.StatusLocked {
		lockedBy, lockedAt = &by, &at
	}
	m, err := scanMonth(q.QueryRowContext(ctx, `
		UPDATE months SET status = $2, locked_by = $3, locked_at = $4
		WHERE month_key = $1
		RETURNING `+monthCols, key, string(status), lockedBy, lockedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func ListLockedMonths(ctx context.Context, q Querier) ([]models.Month, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+monthCols+` FROM months WHERE status = 'LOCKED' ORDER BY month_key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
