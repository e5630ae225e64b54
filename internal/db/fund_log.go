package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const fundCols = `f.id, f.monthly_result_id, r.subject_id, m.month_key, f.entry_type, f.status, f.expected_amount,
	f.actual_amount, f.note, f.marked_by, f.marked_at, f.created_at, f.updated_at`

const fundFrom = `
	FROM fund_log_entries f
	JOIN monthly_results r ON r.id = f.monthly_result_id
	JOIN months m ON m.id = r.month_id`

func scanFund(row interface{ Scan(...any) error }) (*models.FundLogEntry, error) {
	var e models.FundLogEntry
	if err := row.Scan(&e.ID, &e.MonthlyResultID, &e.SubjectID, &e.MonthKey, &e.EntryType, &e.Status, &e.ExpectedAmount,
		&e.ActualAmount, &e.Note, &e.MarkedBy, &e.MarkedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func GetFundEntry(ctx context.Context, q Querier, id int64) (*models.FundLogEntry, error) {
	e, err := scanFund(q.QueryRowContext(ctx, `SELECT `+fundCols+fundFrom+` WHERE f.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

func GetFundEntryForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.FundLogEntry, error) {
	e, err := scanFund(tx.QueryRowContext(ctx, `SELECT `+fundCols+fundFrom+` WHERE f.id = $1 FOR UPDATE OF f`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// FundEntryFor returns the entry of the given type for a monthly result.
func FundEntryFor(ctx context.Context, q Querier, resultID int64, t models.FundEntryType) (*models.FundLogEntry, error) {
	e, err := scanFund(q.QueryRowContext(ctx, `
		SELECT `+fundCols+fundFrom+`
		WHERE f.monthly_result_id = $1 AND f.entry_type = $2`, resultID, string(t)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// UpsertDueEntry creates the entry at DUE or refreshes the expected amount
// of an entry that is still DUE. Settled entries are left untouched.
func UpsertDueEntry(ctx context.Context, tx *sql.Tx, resultID int64, t models.FundEntryType, expected int64, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fund_log_entries (monthly_result_id, entry_type, status, expected_amount, created_at, updated_at)
		VALUES ($1, $2, 'DUE', $3, $4, $4)
		ON CONFLICT (monthly_result_id, entry_type) DO UPDATE
		SET expected_amount = EXCLUDED.expected_amount, updated_at = EXCLUDED.updated_at
		WHERE fund_log_entries.status = 'DUE'`,
		resultID, string(t), expected, now)
	return err
}

// DeleteDueEntry drops an entry that no longer applies, only while DUE.
func DeleteDueEntry(ctx context.Context, tx *sql.Tx, resultID int64, t models.FundEntryType) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM fund_log_entries
		WHERE monthly_result_id = $1 AND entry_type = $2 AND status = 'DUE'`, resultID, string(t))
	return err
}

func SaveFundEntry(ctx context.Context, tx *sql.Tx, e models.FundLogEntry, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE fund_log_entries
		SET status = $2, actual_amount = $3, note = $4, marked_by = $5, marked_at = $6, updated_at = $7
		WHERE id = $1`,
		e.ID, string(e.Status), e.ActualAmount, e.Note, e.MarkedBy, e.MarkedAt, now)
	return err
}

func DeleteFundEntry(ctx context.Context, q Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM fund_log_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

func ListFundEntries(ctx context.Context, q Querier, monthKey string) ([]models.FundLogEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+fundCols+fundFrom+`
		WHERE m.month_key = $1
		ORDER BY r.subject_id, f.entry_type`, monthKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.FundLogEntry
	for rows.Next() {
		e, err := scanFund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
