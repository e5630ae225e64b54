package kpi

import (
	"testing"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func tierPtr(t models.Tier) *models.Tier { return &t }

func TestTierFor(t *testing.T) {
	cases := []struct {
		score float64
		want  models.Tier
	}{
		{100, models.TierBonus},
		{90, models.TierBonus},
		{89.99, models.TierAppreciation},
		{80, models.TierAppreciation},
		{79.99, models.TierImprovement},
		{70, models.TierImprovement},
		{69.99, models.TierFine},
		{0, models.TierFine},
	}
	for _, tc := range cases {
		if got := TierFor(tc.score); got != tc.want {
			t.Fatalf("TierFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestBaseFine(t *testing.T) {
	cases := []struct {
		name  string
		score float64
		prev  *models.Tier
		want  int64
	}{
		{"band_60_70", 65, nil, 300},
		{"band_50_60", 55, nil, 600},
		{"band_dominates_prev_improvement", 55, tierPtr(models.TierImprovement), 600},
		{"band_under_50", 45, nil, 1000},
		{"band_edge_60", 60, nil, 300},
		{"band_edge_50", 50, nil, 600},
		{"repeat_improvement", 75, tierPtr(models.TierImprovement), 300},
		{"first_improvement", 75, tierPtr(models.TierAppreciation), 0},
		{"improvement_no_history", 70, nil, 0},
		{"appreciation_after_improvement", 85, tierPtr(models.TierImprovement), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BaseFine(tc.score, TierFor(tc.score), tc.prev); got != tc.want {
				t.Fatalf("BaseFine = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRollup_Scenarios(t *testing.T) {
	t.Run("bonus_92", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: []float64{92, 92, 92, 92}, ExpectedWeeks: 4})
		if o.Tier != models.TierBonus || o.BaseFine != 0 || o.ActionType != models.ActionBonus {
			t.Fatalf("got %+v", o)
		}
		if o.GiftType == nil || *o.GiftType != models.GiftBonus {
			t.Fatalf("gift type = %v", o.GiftType)
		}
	})

	t.Run("fine_45", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: []float64{45}, ExpectedWeeks: 1})
		if o.Tier != models.TierFine || o.BaseFine != 1000 || o.FinalFine != 1000 || o.ActionType != models.ActionFine {
			t.Fatalf("got %+v", o)
		}
		if o.GiftType != nil {
			t.Fatalf("fine tier must not carry a gift type")
		}
	})

	t.Run("improvement_show_cause", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: []float64{72, 78}, ExpectedWeeks: 2, PreviousTier: tierPtr(models.TierFine)})
		if o.Tier != models.TierImprovement || o.ActionType != models.ActionShowCause || o.BaseFine != 0 {
			t.Fatalf("got %+v", o)
		}
	})

	t.Run("improvement_repeat_fined", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: []float64{72, 78}, ExpectedWeeks: 2, PreviousTier: tierPtr(models.TierImprovement)})
		if o.ActionType != models.ActionFine || o.FinalFine != 300 {
			t.Fatalf("got %+v", o)
		}
	})

	t.Run("no_results", func(t *testing.T) {
		o := Rollup(RollupInput{ExpectedWeeks: 4})
		if o.WeeksCountUsed != 0 || o.IsCompleteMonth || o.MonthlyScore != 0 || o.FinalFine != 1000 {
			t.Fatalf("got %+v", o)
		}
	})
}

func TestRollup_MissingWeekPolicies(t *testing.T) {
	weekly := []float64{90, 80, 70}

	t.Run("exclude", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: weekly, ExpectedWeeks: 4, Policy: ExcludeMissing})
		if o.MonthlyScore != 80 || o.WeeksCountUsed != 3 || o.ExpectedWeeksCount != 4 || o.IsCompleteMonth {
			t.Fatalf("got %+v", o)
		}
		if o.Tier != models.TierAppreciation {
			t.Fatalf("tier = %s", o.Tier)
		}
	})

	t.Run("zero", func(t *testing.T) {
		o := Rollup(RollupInput{WeeklyScores: weekly, ExpectedWeeks: 4, Policy: ZeroMissing})
		if o.MonthlyScore != 60 || o.WeeksCountUsed != 3 || o.IsCompleteMonth {
			t.Fatalf("got %+v", o)
		}
		if o.Tier != models.TierFine || o.BaseFine != 300 {
			t.Fatalf("got %+v", o)
		}
	})

	t.Run("complete_month_same_under_both", func(t *testing.T) {
		full := []float64{90, 80, 70, 80}
		a := Rollup(RollupInput{WeeklyScores: full, ExpectedWeeks: 4, Policy: ExcludeMissing})
		b := Rollup(RollupInput{WeeklyScores: full, ExpectedWeeks: 4, Policy: ZeroMissing})
		if a.MonthlyScore != b.MonthlyScore || a.Tier != b.Tier || a.FinalFine != b.FinalFine || !a.IsCompleteMonth || !b.IsCompleteMonth {
			t.Fatalf("exclude %+v vs zero %+v", a, b)
		}
	})
}

func TestParseMissingWeekPolicy(t *testing.T) {
	if p, err := ParseMissingWeekPolicy(""); err != nil || p != ExcludeMissing {
		t.Fatalf("default = %q, %v", p, err)
	}
	if p, err := ParseMissingWeekPolicy("ZERO"); err != nil || p != ZeroMissing {
		t.Fatalf("zero = %q, %v", p, err)
	}
	if _, err := ParseMissingWeekPolicy("half"); err == nil {
		t.Fatal("unknown policy accepted")
	}
}
