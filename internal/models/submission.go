package models

import "time"

type Submission struct {
	ID            int64     `db:"id"`
	WeekID        int64     `db:"week_id"`
	MarkerID      int64     `db:"marker_id"`
	SubjectID     int64     `db:"subject_id"`
	CriteriaSetID int64     `db:"criteria_set_id"`
	TotalScore    float64   `db:"total_score"`
	Comment       *string   `db:"comment"`
	SubmittedAt   time.Time `db:"submitted_at"`
	Items         []SubmissionItem
}

// SubmissionItem snapshots the weight and scale used at scoring time.
type SubmissionItem struct {
	ID           int64   `db:"id"`
	SubmissionID int64   `db:"submission_id"`
	CriteriaID   int64   `db:"criteria_id"`
	ScoreRaw     float64 `db:"score_raw"`
	Weight       int     `db:"weight"`
	ScaleMax     int     `db:"scale_max"`
}

type RawScore struct {
	CriteriaID int64   `json:"criteria_id"`
	ScoreRaw   float64 `json:"score_raw"`
}

type WeeklyResult struct {
	ID              int64     `db:"id"`
	SubjectID       int64     `db:"subject_id"`
	WeekID          int64     `db:"week_id"`
	WeekKey         time.Time `db:"week_key"`
	AverageScore    float64   `db:"average_score"`
	SubmissionCount int       `db:"submission_count"`
	IsComplete      bool      `db:"is_complete"`
	ComputedAt      time.Time `db:"computed_at"`
}
