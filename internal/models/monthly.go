package models

import "time"

type Tier string

const (
	TierBonus        Tier = "BONUS"
	TierAppreciation Tier = "APPRECIATION"
	TierImprovement  Tier = "IMPROVEMENT"
	TierFine         Tier = "FINE"
)

type ActionType string

const (
	ActionBonus        ActionType = "BONUS"
	ActionAppreciation ActionType = "APPRECIATION"
	ActionShowCause    ActionType = "SHOW_CAUSE"
	ActionFine         ActionType = "FINE"
)

type GiftType string

const (
	GiftBonus        GiftType = "BONUS"
	GiftAppreciation GiftType = "APPRECIATION"
)

type MonthlyResult struct {
	ID                 int64      `db:"id"`
	SubjectID          int64      `db:"subject_id"`
	MonthID            int64      `db:"month_id"`
	MonthKey           string     `db:"month_key"`
	MonthlyScore       float64    `db:"monthly_score"`
	Tier               Tier       `db:"tier"`
	ActionType         ActionType `db:"action_type"`
	BaseFine           int64      `db:"base_fine"`
	FinalFine          int64      `db:"final_fine"`
	GiftType           *GiftType  `db:"gift_type"`
	GiftAmount         int64      `db:"gift_amount"`
	WeeksCountUsed     int        `db:"weeks_count_used"`
	ExpectedWeeksCount int        `db:"expected_weeks_count"`
	IsCompleteMonth    bool       `db:"is_complete_month"`
	ComputedAt         time.Time  `db:"computed_at"`
}
