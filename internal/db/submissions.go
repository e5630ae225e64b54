package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const submissionCols = `id, week_id, marker_id, subject_id, criteria_set_id, total_score::float8, comment, submitted_at`

func scanSubmission(row interface{ Scan(...any) error }) (*models.Submission, error) {
	var s models.Submission
	if err := row.Scan(&s.ID, &s.WeekID, &s.MarkerID, &s.SubjectID, &s.CriteriaSetID, &s.TotalScore, &s.Comment, &s.SubmittedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSubmission writes the header row keyed by (week, marker, subject).
// The conflicting row stays locked until tx ends, so concurrent
// resubmissions for the same key serialise.
func UpsertSubmission(ctx context.Context, tx *sql.Tx, s models.Submission) (*models.Submission, error) {
	return scanSubmission(tx.QueryRowContext(ctx, `
		INSERT INTO submissions (week_id, marker_id, subject_id, criteria_set_id, total_score, comment, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (week_id, marker_id, subject_id) DO UPDATE
		SET criteria_set_id = EXCLUDED.criteria_set_id,
		    total_score     = EXCLUDED.total_score,
		    comment         = EXCLUDED.comment,
		    submitted_at    = EXCLUDED.submitted_at
		RETURNING `+submissionCols,
		s.WeekID, s.MarkerID, s.SubjectID, s.CriteriaSetID, s.TotalScore, s.Comment, s.SubmittedAt))
}

// ReplaceSubmissionItems deletes every item row and inserts items.
func ReplaceSubmissionItems(ctx context.Context, tx *sql.Tx, submissionID int64, items []models.SubmissionItem) ([]models.SubmissionItem, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM submission_items WHERE submission_id = $1`, submissionID); err != nil {
		return nil, err
	}
	out := make([]models.SubmissionItem, 0, len(items))
	for _, it := range items {
		it.SubmissionID = submissionID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO submission_items (submission_id, criteria_id, score_raw, weight, scale_max)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			submissionID, it.CriteriaID, it.ScoreRaw, it.Weight, it.ScaleMax).Scan(&it.ID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func GetSubmission(ctx context.Context, q Querier, weekID, markerID, subjectID int64) (*models.Submission, error) {
	s, err := scanSubmission(q.QueryRowContext(ctx, `
		SELECT `+submissionCols+` FROM submissions
		WHERE week_id = $1 AND marker_id = $2 AND subject_id = $3`, weekID, markerID, subjectID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, submission_id, criteria_id, score_raw, weight, scale_max
		FROM submission_items WHERE submission_id = $1 ORDER BY id`, s.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var it models.SubmissionItem
		if err := rows.Scan(&it.ID, &it.SubmissionID, &it.CriteriaID, &it.ScoreRaw, &it.Weight, &it.ScaleMax); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, it)
	}
	return s, rows.Err()
}

// CountSubmissions counts header rows for one (week, subject).
func CountSubmissions(ctx context.Context, q Querier, weekID, subjectID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT count(*) FROM submissions WHERE week_id = $1 AND subject_id = $2`, weekID, subjectID).Scan(&n)
	return n, err
}

// LockWeeklyResult creates the (subject, week) result row if needed and
// locks it, serialising recomputation across markers of one subject.
func LockWeeklyResult(ctx context.Context, tx *sql.Tx, subjectID, weekID int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO weekly_results (subject_id, week_id) VALUES ($1, $2)
		ON CONFLICT (subject_id, week_id) DO NOTHING`, subjectID, weekID); err != nil {
		return err
	}
	var id int64
	return tx.QueryRowContext(ctx, `
		SELECT id FROM weekly_results WHERE subject_id = $1 AND week_id = $2 FOR UPDATE`,
		subjectID, weekID).Scan(&id)
}

// SubmissionTotals returns marker id -> total for one (subject, week).
func SubmissionTotals(ctx context.Context, q Querier, subjectID, weekID int64) (map[int64]float64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT marker_id, total_score::float8 FROM submissions
		WHERE subject_id = $1 AND week_id = $2`, subjectID, weekID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64]float64)
	for rows.Next() {
		var marker int64
		var total float64
		if err := rows.Scan(&marker, &total); err != nil {
			return nil, err
		}
		out[marker] = total
	}
	return out, rows.Err()
}

func SaveWeeklyResult(ctx context.Context, q Querier, r models.WeeklyResult) error {
	_, err := q.ExecContext(ctx, `
		UPDATE weekly_results
		SET average_score = $3, submission_count = $4, is_complete = $5, computed_at = $6
		WHERE subject_id = $1 AND week_id = $2`,
		r.SubjectID, r.WeekID, r.AverageScore, r.SubmissionCount, r.IsComplete, r.ComputedAt)
	return err
}

const weeklyCols = `r.id, r.subject_id, r.week_id, w.week_key, r.average_score::float8, r.submission_count, r.is_complete, r.computed_at`

func scanWeekly(row interface{ Scan(...any) error }) (*models.WeeklyResult, error) {
	var r models.WeeklyResult
	if err := row.Scan(&r.ID, &r.SubjectID, &r.WeekID, &r.WeekKey, &r.AverageScore, &r.SubmissionCount, &r.IsComplete, &r.ComputedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func GetWeeklyResult(ctx context.Context, q Querier, subjectID, weekID int64) (*models.WeeklyResult, error) {
	r, err := scanWeekly(q.QueryRowContext(ctx, `
		SELECT `+weeklyCols+`
		FROM weekly_results r JOIN weeks w ON w.id = r.week_id
		WHERE r.subject_id = $1 AND r.week_id = $2`, subjectID, weekID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// WeeklyResultsForWeeks returns the subject's results with at least one
// submission, restricted to the given Friday keys.
func WeeklyResultsForWeeks(ctx context.Context, q Querier, subjectID int64, weekKeys []string) ([]models.WeeklyResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+weeklyCols+`
		FROM weekly_results r JOIN weeks w ON w.id = r.week_id
		WHERE r.subject_id = $1
		  AND w.week_key = ANY($2::date[])
		  AND r.submission_count > 0
		ORDER BY w.week_key`, subjectID, pq.Array(weekKeys))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.WeeklyResult
	for rows.Next() {
		r, err := scanWeekly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// PendingPair is an active assignment with no submission for a week.
type PendingPair struct {
	MarkerID   int64
	SubjectID  int64
	TelegramID *int64
}

// PendingMarkings lists active assignments lacking a submission for the
// week key. subjectID of 0 means every subject.
func PendingMarkings(ctx context.Context, q Querier, weekKey string, subjectID int64) ([]PendingPair, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.marker_id, a.subject_id, m.telegram_id
		FROM assignments a
		JOIN people m ON m.id = a.marker_id
		JOIN people s ON s.id = a.subject_id
		WHERE a.is_active AND m.is_active AND s.is_active
		  AND ($2::bigint = 0 OR a.subject_id = $2::bigint)
		  AND NOT EXISTS (
			SELECT 1 FROM submissions x
			JOIN weeks w ON w.id = x.week_id
			WHERE w.week_key = $1 AND x.marker_id = a.marker_id AND x.subject_id = a.subject_id
		  )
		ORDER BY a.marker_id, a.subject_id`, weekKey, subjectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []PendingPair
	for rows.Next() {
		var p PendingPair
		if err := rows.Scan(&p.MarkerID, &p.SubjectID, &p.TelegramID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
