package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const setCols = `id, subject_id, version, active_from, active_to, created_by`

func scanSet(row interface{ Scan(...any) error }) (*models.CriteriaSet, error) {
	var s models.CriteriaSet
	if err := row.Scan(&s.ID, &s.SubjectID, &s.Version, &s.ActiveFrom, &s.ActiveTo, &s.CreatedBy); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActiveCriteriaSet returns the subject's current set with items, or
// ErrNotFound if none was ever configured.
func ActiveCriteriaSet(ctx context.Context, q Querier, subjectID int64) (*models.CriteriaSet, error) {
	s, err := scanSet(q.QueryRowContext(ctx, `
		SELECT `+setCols+` FROM criteria_sets
		WHERE subject_id = $1 AND active_to IS NULL`, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, loadSetItems(ctx, q, s)
}

func CriteriaSetByID(ctx context.Context, q Querier, id int64) (*models.CriteriaSet, error) {
	s, err := scanSet(q.QueryRowContext(ctx, `SELECT `+setCols+` FROM criteria_sets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, loadSetItems(ctx, q, s)
}

// CriteriaSetHistory lists every version for subject, newest first,
// without items.
func CriteriaSetHistory(ctx context.Context, q Querier, subjectID int64) ([]models.CriteriaSet, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+setCols+` FROM criteria_sets
		WHERE subject_id = $1
		ORDER BY version DESC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.CriteriaSet
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func loadSetItems(ctx context.Context, q Querier, s *models.CriteriaSet) error {
	rows, err := q.QueryContext(ctx, `
		SELECT i.id, i.criteria_set_id, i.criteria_id, c.key, c.name, i.weight, i.scale_max
		FROM criteria_set_items i
		JOIN criteria c ON c.id = i.criteria_id
		WHERE i.criteria_set_id = $1
		ORDER BY i.id`, s.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	s.Items = s.Items[:0]
	for rows.Next() {
		var it models.CriteriaSetItem
		if err := rows.Scan(&it.ID, &it.CriteriaSetID, &it.CriteriaID, &it.CriteriaKey, &it.CriteriaName, &it.Weight, &it.ScaleMax); err != nil {
			return err
		}
		s.Items = append(s.Items, it)
	}
	return rows.Err()
}

// lockSubjectSets serialises replacements for one subject, including the
// very first one when no row exists yet to lock.
func lockSubjectSets(ctx context.Context, tx *sql.Tx, subjectID int64) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('criteria_sets:' || $1::bigint))`, subjectID)
	return err
}

// ReplaceCriteriaSet stamps the current set's active_to and inserts the next
// version with its items, inside tx. items must already be validated and
// carry resolved scale maxima.
func ReplaceCriteriaSet(ctx context.Context, tx *sql.Tx, subjectID, createdBy int64, items []models.CriteriaSetItemInput, now time.Time) (*models.CriteriaSet, error) {
	if err := lockSubjectSets(ctx, tx, subjectID); err != nil {
		return nil, err
	}

	var prev int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM criteria_sets WHERE subject_id = $1`, subjectID).Scan(&prev); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE criteria_sets SET active_to = $1
		WHERE subject_id = $2 AND active_to IS NULL`, now, subjectID); err != nil {
		return nil, err
	}

	s, err := scanSet(tx.QueryRowContext(ctx, `
		INSERT INTO criteria_sets (subject_id, version, active_from, active_to, created_by)
		VALUES ($1, $2, $3, NULL, $4)
		RETURNING `+setCols,
		subjectID, prev+1, now, createdBy))
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO criteria_set_items (criteria_set_id, criteria_id, weight, scale_max)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stmt.Close() }()
	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, s.ID, it.CriteriaID, it.Weight, it.ScaleMax); err != nil {
			return nil, err
		}
	}
	return s, loadSetItems(ctx, tx, s)
}
