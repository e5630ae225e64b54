package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const criterionCols = `id, key, name, default_scale_max, description, created_at`

func scanCriterion(row interface{ Scan(...any) error }) (*models.Criterion, error) {
	var c models.Criterion
	if err := row.Scan(&c.ID, &c.Key, &c.Name, &c.DefaultScaleMax, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func CreateCriterion(ctx context.Context, q Querier, c models.Criterion) (*models.Criterion, error) {
	return scanCriterion(q.QueryRowContext(ctx, `
		INSERT INTO criteria (key, name, default_scale_max, description)
		VALUES ($1, $2, $3, $4)
		RETURNING `+criterionCols,
		c.Key, c.Name, c.DefaultScaleMax, c.Description))
}

// GetCriterionForUpdate locks the catalog row for the rest of the tx.
func GetCriterionForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Criterion, error) {
	c, err := scanCriterion(tx.QueryRowContext(ctx, `SELECT `+criterionCols+` FROM criteria WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func UpdateCriterion(ctx context.Context, q Querier, c models.Criterion) (*models.Criterion, error) {
	out, err := scanCriterion(q.QueryRowContext(ctx, `
		UPDATE criteria
		SET key = $1, name = $2, default_scale_max = $3, description = $4
		WHERE id = $5
		RETURNING `+criterionCols,
		c.Key, c.Name, c.DefaultScaleMax, c.Description, c.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return out, err
}

func DeleteCriterion(ctx context.Context, q Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM criteria WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// CriterionInUse reports whether any criteria-set item references id.
func CriterionInUse(ctx context.Context, q Querier, id int64) (bool, error) {
	var used bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM criteria_set_items WHERE criteria_id = $1)`, id).Scan(&used)
	return used, err
}

func ListCriteria(ctx context.Context, q Querier) ([]models.Criterion, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+criterionCols+` FROM criteria ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CriteriaDefaults maps each existing id in ids to its default scale max.
func CriteriaDefaults(ctx context.Context, q Querier, ids []int64) (map[int64]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, default_scale_max FROM criteria WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]int, len(ids))
	for rows.Next() {
		var id int64
		var scale int
		if err := rows.Scan(&id, &scale); err != nil {
			return nil, err
		}
		out[id] = scale
	}
	return out, rows.Err()
}
