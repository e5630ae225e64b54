package models

import "time"

type PeriodStatus string

const (
	StatusOpen   PeriodStatus = "OPEN"
	StatusLocked PeriodStatus = "LOCKED"
)

// Week is keyed by its Friday.
type Week struct {
	ID         int64        `db:"id"`
	WeekKey    time.Time    `db:"week_key"`
	Status     PeriodStatus `db:"status"`
	UnlockedBy *int64       `db:"unlocked_by"`
	UnlockedAt *time.Time   `db:"unlocked_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// Key returns the YYYY-MM-DD form of the week's Friday.
func (w Week) Key() string { return w.WeekKey.Format("2006-01-02") }

type Month struct {
	ID        int64        `db:"id"`
	MonthKey  string       `db:"month_key"`
	StartDate time.Time    `db:"start_date"`
	EndDate   time.Time    `db:"end_date"`
	Status    PeriodStatus `db:"status"`
	LockedBy  *int64       `db:"locked_by"`
	LockedAt  *time.Time   `db:"locked_at"`
	CreatedAt time.Time    `db:"created_at"`
}
