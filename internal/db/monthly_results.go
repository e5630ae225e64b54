package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const monthlyCols = `r.id, r.subject_id, r.month_id, m.month_key, r.monthly_score::float8, r.tier, r.action_type,
	r.base_fine, r.final_fine, r.gift_type, r.gift_amount, r.weeks_count_used, r.expected_weeks_count,
	r.is_complete_month, r.computed_at`

func scanMonthly(row interface{ Scan(...any) error }) (*models.MonthlyResult, error) {
	var r models.MonthlyResult
	if err := row.Scan(&r.ID, &r.SubjectID, &r.MonthID, &r.MonthKey, &r.MonthlyScore, &r.Tier, &r.ActionType,
		&r.BaseFine, &r.FinalFine, &r.GiftType, &r.GiftAmount, &r.WeeksCountUsed, &r.ExpectedWeeksCount,
		&r.IsCompleteMonth, &r.ComputedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertMonthlyResult writes the outcome keyed by (subject, month). The
// administrator-set gift amount survives recomputation while the tier still
// carries a gift.
func UpsertMonthlyResult(ctx context.Context, tx *sql.Tx, r models.MonthlyResult) (*models.MonthlyResult, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO monthly_results (subject_id, month_id, monthly_score, tier, action_type, base_fine, final_fine,
		                             gift_type, gift_amount, weeks_count_used, expected_weeks_count, is_complete_month, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12)
		ON CONFLICT (subject_id, month_id) DO UPDATE
		SET monthly_score        = EXCLUDED.monthly_score,
		    tier                 = EXCLUDED.tier,
		    action_type          = EXCLUDED.action_type,
		    base_fine            = EXCLUDED.base_fine,
		    final_fine           = EXCLUDED.final_fine,
		    gift_type            = EXCLUDED.gift_type,
		    gift_amount          = CASE WHEN EXCLUDED.gift_type IS NULL THEN 0 ELSE monthly_results.gift_amount END,
		    weeks_count_used     = EXCLUDED.weeks_count_used,
		    expected_weeks_count = EXCLUDED.expected_weeks_count,
		    is_complete_month    = EXCLUDED.is_complete_month,
		    computed_at          = EXCLUDED.computed_at
		RETURNING id`,
		r.SubjectID, r.MonthID, r.MonthlyScore, string(r.Tier), string(r.ActionType), r.BaseFine, r.FinalFine,
		r.GiftType, r.WeeksCountUsed, r.ExpectedWeeksCount, r.IsCompleteMonth, r.ComputedAt).Scan(&id); err != nil {
		return nil, err
	}
	return GetMonthlyResultByID(ctx, tx, id)
}

func GetMonthlyResultByID(ctx context.Context, q Querier, id int64) (*models.MonthlyResult, error) {
	r, err := scanMonthly(q.QueryRowContext(ctx, `
		SELECT `+monthlyCols+`
		FROM monthly_results r JOIN months m ON m.id = r.month_id
		WHERE r.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// GetMonthlyResultForUpdate locks the result row for the rest of tx.
func GetMonthlyResultForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.MonthlyResult, error) {
	r, err := scanMonthly(tx.QueryRowContext(ctx, `
		SELECT `+monthlyCols+`
		FROM monthly_results r JOIN months m ON m.id = r.month_id
		WHERE r.id = $1
		FOR UPDATE OF r`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func GetMonthlyResult(ctx context.Context, q Querier, subjectID int64, monthKey string) (*models.MonthlyResult, error) {
	r, err := scanMonthly(q.QueryRowContext(ctx, `
		SELECT `+monthlyCols+`
		FROM monthly_results r JOIN months m ON m.id = r.month_id
		WHERE r.subject_id = $1 AND m.month_key = $2`, subjectID, monthKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// PreviousTier returns the stored tier for subject in monthKey, or nil when
// no result exists.
func PreviousTier(ctx context.Context, q Querier, subjectID int64, monthKey string) (*models.Tier, error) {
	r, err := GetMonthlyResult(ctx, q, subjectID, monthKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r.Tier, nil
}

func SetGiftAmount(ctx context.Context, tx *sql.Tx, id, amount int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE monthly_results SET gift_amount = $2 WHERE id = $1`, id, amount)
	return err
}

func ListMonthlyResults(ctx context.Context, q Querier, monthKey string) ([]models.MonthlyResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+monthlyCols+`
		FROM monthly_results r JOIN months m ON m.id = r.month_id
		WHERE m.month_key = $1
		ORDER BY r.subject_id`, monthKey)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.MonthlyResult
	for rows.Next() {
		r, err := scanMonthly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
