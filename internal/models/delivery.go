package models

import "time"

type DeliveryType string

const (
	DeliveryReminder  DeliveryType = "REMINDER"
	DeliveryMarksheet DeliveryType = "MARKSHEET"
)

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "SENT"
	DeliveryFailed DeliveryStatus = "FAILED"
)

// DeliveryLog records what the relay attempted; the core does not
// interpret failures.
type DeliveryLog struct {
	ID          int64          `db:"id"`
	SubjectID   int64          `db:"subject_id"`
	RecipientID *int64         `db:"recipient_id"`
	MonthKey    *string        `db:"month_key"`
	WeekKey     *time.Time     `db:"week_key"`
	Type        DeliveryType   `db:"type"`
	Status      DeliveryStatus `db:"status"`
	Error       *string        `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
}
