package models

import "time"

type Criterion struct {
	ID              int64     `db:"id"`
	Key             string    `db:"key" validate:"required,max=64,criteria_key"`
	Name            string    `db:"name" validate:"required,max=200"`
	DefaultScaleMax int       `db:"default_scale_max" validate:"gt=0,lte=1000"`
	Description     *string   `db:"description"`
	CreatedAt       time.Time `db:"created_at"`
}

type CriteriaSet struct {
	ID         int64      `db:"id"`
	SubjectID  int64      `db:"subject_id"`
	Version    int        `db:"version"`
	ActiveFrom time.Time  `db:"active_from"`
	ActiveTo   *time.Time `db:"active_to"`
	CreatedBy  int64      `db:"created_by"`
	Items      []CriteriaSetItem
}

// IsCurrent reports whether the set has not been superseded.
func (s CriteriaSet) IsCurrent() bool { return s.ActiveTo == nil }

type CriteriaSetItem struct {
	ID            int64  `db:"id"`
	CriteriaSetID int64  `db:"criteria_set_id"`
	CriteriaID    int64  `db:"criteria_id"`
	CriteriaKey   string `db:"criteria_key"`
	CriteriaName  string `db:"criteria_name"`
	Weight        int    `db:"weight"`
	ScaleMax      int    `db:"scale_max"`
}

// CriteriaSetItemInput is one row of a replacement request. ScaleMax of 0
// falls back to the criterion's default scale.
type CriteriaSetItemInput struct {
	CriteriaID int64
	Weight     int
	ScaleMax   int
}
