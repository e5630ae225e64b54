package kpi

import (
	"strings"
	"testing"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func threeItems() []ScoreItem {
	return []ScoreItem{
		{CriteriaID: 1, Weight: 40, ScaleMax: 10},
		{CriteriaID: 2, Weight: 30, ScaleMax: 10},
		{CriteriaID: 3, Weight: 30, ScaleMax: 10},
	}
}

func TestScore_WeightedScenario(t *testing.T) {
	raw := []models.RawScore{{CriteriaID: 1, ScoreRaw: 8}, {CriteriaID: 2, ScoreRaw: 6}, {CriteriaID: 3, ScoreRaw: 9}}
	if v := Validate(threeItems(), raw); !v.Valid {
		t.Fatalf("unexpected violations: %v", v.Errors)
	}
	got := Score(threeItems(), raw)
	if got != 77.00 {
		t.Fatalf("Score() = %v, want 77.00", got)
	}
	if again := Score(threeItems(), raw); again != got {
		t.Fatalf("Score() not deterministic: %v then %v", got, again)
	}
}

func TestScore_Bounds(t *testing.T) {
	items := threeItems()
	max := []models.RawScore{{CriteriaID: 1, ScoreRaw: 10}, {CriteriaID: 2, ScoreRaw: 10}, {CriteriaID: 3, ScoreRaw: 10}}
	if got := Score(items, max); got != 100 {
		t.Fatalf("full marks = %v, want 100", got)
	}
	zero := []models.RawScore{{CriteriaID: 1}, {CriteriaID: 2}, {CriteriaID: 3}}
	if got := Score(items, zero); got != 0 {
		t.Fatalf("zero marks = %v, want 0", got)
	}
}

func TestScore_RoundsToTwoDecimals(t *testing.T) {
	items := []ScoreItem{{CriteriaID: 1, Weight: 100, ScaleMax: 3}}
	got := Score(items, []models.RawScore{{CriteriaID: 1, ScoreRaw: 1}})
	if got != 33.33 {
		t.Fatalf("Score() = %v, want 33.33", got)
	}
}

func TestScore_MissingContributesZero(t *testing.T) {
	raw := []models.RawScore{{CriteriaID: 1, ScoreRaw: 10}}
	if got := Score(threeItems(), raw); got != 40 {
		t.Fatalf("Score() = %v, want 40", got)
	}
}

func TestValidate_AccumulatesViolations(t *testing.T) {
	raw := []models.RawScore{
		{CriteriaID: 1, ScoreRaw: 11},  // out of range
		{CriteriaID: 1, ScoreRaw: 5},   // duplicate
		{CriteriaID: 9, ScoreRaw: 1},   // unknown
		{CriteriaID: 2, ScoreRaw: -1},  // negative
	}
	v := Validate(threeItems(), raw)
	if v.Valid {
		t.Fatal("expected invalid")
	}
	want := []string{"out of range", "more than once", "not part of the active set", "criteria 3: score missing"}
	joined := strings.Join(v.Errors, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Fatalf("missing violation %q in:\n%s", w, joined)
		}
	}
	if len(v.Errors) != 5 {
		t.Fatalf("got %d violations, want 5: %v", len(v.Errors), v.Errors)
	}
}

func TestValidateSetItems(t *testing.T) {
	known := map[int64]int{1: 10, 2: 10, 3: 5}

	t.Run("valid", func(t *testing.T) {
		items := []models.CriteriaSetItemInput{{CriteriaID: 1, Weight: 40}, {CriteriaID: 2, Weight: 30}, {CriteriaID: 3, Weight: 30, ScaleMax: 4}}
		if errs := ValidateSetItems(items, known); len(errs) != 0 {
			t.Fatalf("unexpected: %v", errs)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if errs := ValidateSetItems(nil, known); len(errs) != 1 {
			t.Fatalf("got %v", errs)
		}
	})

	t.Run("sum_and_unknown", func(t *testing.T) {
		items := []models.CriteriaSetItemInput{{CriteriaID: 1, Weight: 50}, {CriteriaID: 7, Weight: 40}}
		errs := ValidateSetItems(items, known)
		joined := strings.Join(errs, "\n")
		if !strings.Contains(joined, "unknown criteria 7") || !strings.Contains(joined, "sum to 90") {
			t.Fatalf("got %v", errs)
		}
	})

	t.Run("duplicate_criteria", func(t *testing.T) {
		items := []models.CriteriaSetItemInput{{CriteriaID: 1, Weight: 50}, {CriteriaID: 1, Weight: 50}}
		errs := ValidateSetItems(items, known)
		if len(errs) != 1 || !strings.Contains(errs[0], "listed twice") {
			t.Fatalf("got %v", errs)
		}
	})
}
