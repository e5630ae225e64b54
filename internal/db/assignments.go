package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const assignmentCols = `id, marker_id, subject_id, is_active, created_by, created_at`

func scanAssignment(row interface{ Scan(...any) error }) (*models.Assignment, error) {
	var a models.Assignment
	if err := row.Scan(&a.ID, &a.MarkerID, &a.SubjectID, &a.IsActive, &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAssignment reactivates an existing (marker, subject) pair instead of
// duplicating it.
func CreateAssignment(ctx context.Context, q Querier, a models.Assignment) (*models.Assignment, error) {
	return scanAssignment(q.QueryRowContext(ctx, `
		INSERT INTO assignments (marker_id, subject_id, is_active, created_by)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (marker_id, subject_id) DO UPDATE SET is_active = TRUE
		RETURNING `+assignmentCols,
		a.MarkerID, a.SubjectID, a.CreatedBy))
}

func SetAssignmentActive(ctx context.Context, q Querier, id int64, active bool) (*models.Assignment, error) {
	a, err := scanAssignment(q.QueryRowContext(ctx, `
		UPDATE assignments SET is_active = $1 WHERE id = $2
		RETURNING `+assignmentCols, active, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// IsAssignmentActive requires the assignment and both people to be active.
func IsAssignmentActive(ctx context.Context, q Querier, markerID, subjectID int64) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM assignments a
			JOIN people m ON m.id = a.marker_id
			JOIN people s ON s.id = a.subject_id
			WHERE a.marker_id = $1 AND a.subject_id = $2
			  AND a.is_active AND m.is_active AND s.is_active
		)`, markerID, subjectID).Scan(&ok)
	return ok, err
}

// ActiveMarkerIDs lists currently active markers assigned to subject.
func ActiveMarkerIDs(ctx context.Context, q Querier, subjectID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.marker_id
		FROM assignments a
		JOIN people m ON m.id = a.marker_id
		WHERE a.subject_id = $1 AND a.is_active AND m.is_active
		ORDER BY a.marker_id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanIDs(rows)
}

// SubjectsWithActiveAssignments lists active subjects that have at least
// one active marker.
func SubjectsWithActiveAssignments(ctx context.Context, q Querier) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT a.subject_id
		FROM assignments a
		JOIN people s ON s.id = a.subject_id
		JOIN people m ON m.id = a.marker_id
		WHERE a.is_active AND s.is_active AND m.is_active
		ORDER BY a.subject_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
