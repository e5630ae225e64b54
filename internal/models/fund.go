package models

import "time"

type FundEntryType string

const (
	EntryFine  FundEntryType = "FINE"
	EntryBonus FundEntryType = "BONUS"
)

type FundStatus string

const (
	FundDue       FundStatus = "DUE"
	FundCollected FundStatus = "COLLECTED"
	FundPaid      FundStatus = "PAID"
)

type FundLogEntry struct {
	ID              int64         `db:"id"`
	MonthlyResultID int64         `db:"monthly_result_id"`
	SubjectID       int64         `db:"subject_id"`
	MonthKey        string        `db:"month_key"`
	EntryType       FundEntryType `db:"entry_type"`
	Status          FundStatus    `db:"status"`
	ExpectedAmount  int64         `db:"expected_amount"`
	ActualAmount    *int64        `db:"actual_amount"`
	Note            *string       `db:"note"`
	MarkedBy        *int64        `db:"marked_by"`
	MarkedAt        *time.Time    `db:"marked_at"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}
