package kpi

import (
	"fmt"
	"strings"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// MissingWeekPolicy decides how expected weeks without a weekly result
// enter the monthly mean.
type MissingWeekPolicy string

const (
	// ExcludeMissing averages only the weeks that have a result.
	ExcludeMissing MissingWeekPolicy = "exclude"
	// ZeroMissing counts every expected week without a result as 0.
	ZeroMissing MissingWeekPolicy = "zero"
)

func ParseMissingWeekPolicy(s string) (MissingWeekPolicy, error) {
	switch MissingWeekPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExcludeMissing:
		return ExcludeMissing, nil
	case ZeroMissing:
		return ZeroMissing, nil
	}
	return "", fmt.Errorf("unknown missing-week policy %q", s)
}

const (
	RepeatImprovementFine int64 = 300
)

// RollupInput holds everything the monthly outcome depends on.
type RollupInput struct {
	WeeklyScores  []float64
	ExpectedWeeks int
	PreviousTier  *models.Tier
	Policy        MissingWeekPolicy
}

type Outcome struct {
	MonthlyScore       float64
	Tier               models.Tier
	ActionType         models.ActionType
	BaseFine           int64
	FinalFine          int64
	GiftType           *models.GiftType
	WeeksCountUsed     int
	ExpectedWeeksCount int
	IsCompleteMonth    bool
}

// Rollup is a pure function of this month's weekly averages and the
// previous month's stored tier.
func Rollup(in RollupInput) Outcome {
	used := len(in.WeeklyScores)
	if used > in.ExpectedWeeks {
		used = in.ExpectedWeeks
	}
	scores := in.WeeklyScores[:used]

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	denom := used
	if in.Policy == ZeroMissing {
		denom = in.ExpectedWeeks
	}
	score := 0.0
	if denom > 0 {
		score = Round2(sum / float64(denom))
	}

	tier := TierFor(score)
	base := BaseFine(score, tier, in.PreviousTier)
	return Outcome{
		MonthlyScore:       score,
		Tier:               tier,
		ActionType:         ActionFor(tier, base),
		BaseFine:           base,
		FinalFine:          base,
		GiftType:           GiftFor(tier),
		WeeksCountUsed:     used,
		ExpectedWeeksCount: in.ExpectedWeeks,
		IsCompleteMonth:    used >= in.ExpectedWeeks,
	}
}

func TierFor(score float64) models.Tier {
	switch {
	case score >= 90:
		return models.TierBonus
	case score >= 80:
		return models.TierAppreciation
	case score >= 70:
		return models.TierImprovement
	default:
		return models.TierFine
	}
}

// BandFine is the score-band schedule for scores under 70.
func BandFine(score float64) int64 {
	switch {
	case score >= 70:
		return 0
	case score >= 60:
		return 300
	case score >= 50:
		return 600
	default:
		return 1000
	}
}

// BaseFine applies the band schedule below 70; otherwise only a second
// consecutive IMPROVEMENT month is fined.
func BaseFine(score float64, tier models.Tier, prev *models.Tier) int64 {
	if score < 70 {
		return BandFine(score)
	}
	if tier == models.TierImprovement && prev != nil && *prev == models.TierImprovement {
		return RepeatImprovementFine
	}
	return 0
}

func ActionFor(tier models.Tier, baseFine int64) models.ActionType {
	switch tier {
	case models.TierBonus:
		return models.ActionBonus
	case models.TierAppreciation:
		return models.ActionAppreciation
	case models.TierImprovement:
		if baseFine > 0 {
			return models.ActionFine
		}
		return models.ActionShowCause
	default:
		return models.ActionFine
	}
}

func GiftFor(tier models.Tier) *models.GiftType {
	var g models.GiftType
	switch tier {
	case models.TierBonus:
		g = models.GiftBonus
	case models.TierAppreciation:
		g = models.GiftAppreciation
	default:
		return nil
	}
	return &g
}
