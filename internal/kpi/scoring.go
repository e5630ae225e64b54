package kpi

import (
	"fmt"
	"math"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// ScoreItem is one configured criterion of the set used for scoring.
type ScoreItem struct {
	CriteriaID int64
	Weight     int
	ScaleMax   int
}

func ItemsFromSet(set models.CriteriaSet) []ScoreItem {
	out := make([]ScoreItem, 0, len(set.Items))
	for _, it := range set.Items {
		out = append(out, ScoreItem{CriteriaID: it.CriteriaID, Weight: it.Weight, ScaleMax: it.ScaleMax})
	}
	return out
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks raw scores against the configured items. All violations
// are collected.
func Validate(items []ScoreItem, raw []models.RawScore) ValidationResult {
	var errs []string
	configured := make(map[int64]ScoreItem, len(items))
	for _, it := range items {
		configured[it.CriteriaID] = it
	}
	seen := make(map[int64]int, len(raw))
	for _, r := range raw {
		seen[r.CriteriaID]++
		it, ok := configured[r.CriteriaID]
		if !ok {
			errs = append(errs, fmt.Sprintf("criteria %d is not part of the active set", r.CriteriaID))
			continue
		}
		if seen[r.CriteriaID] == 2 {
			errs = append(errs, fmt.Sprintf("criteria %d scored more than once", r.CriteriaID))
		}
		if math.IsNaN(r.ScoreRaw) || r.ScoreRaw < 0 || r.ScoreRaw > float64(it.ScaleMax) {
			errs = append(errs, fmt.Sprintf("criteria %d: score %v out of range [0, %d]", r.CriteriaID, r.ScoreRaw, it.ScaleMax))
		}
	}
	for _, it := range items {
		if seen[it.CriteriaID] == 0 {
			errs = append(errs, fmt.Sprintf("criteria %d: score missing", it.CriteriaID))
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Score computes the weighted total in [0, 100], rounded to 2 decimals.
// A configured criterion without a raw score contributes 0; Validate rejects
// that case before scoring on the normal path.
func Score(items []ScoreItem, raw []models.RawScore) float64 {
	byID := make(map[int64]float64, len(raw))
	for _, r := range raw {
		if _, dup := byID[r.CriteriaID]; !dup {
			byID[r.CriteriaID] = r.ScoreRaw
		}
	}
	total := 0.0
	for _, it := range items {
		if it.ScaleMax <= 0 {
			continue
		}
		normalized := byID[it.CriteriaID] / float64(it.ScaleMax) * 100
		total += normalized * float64(it.Weight) / 100
	}
	return clamp(Round2(total), 0, 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateSetItems checks a criteria set replacement. known maps criterion
// id to its default scale.
func ValidateSetItems(items []models.CriteriaSetItemInput, known map[int64]int) []string {
	var errs []string
	if len(items) == 0 {
		return []string{"criteria set needs at least one item"}
	}
	sum := 0
	seen := make(map[int64]bool, len(items))
	for i, it := range items {
		if _, ok := known[it.CriteriaID]; !ok {
			errs = append(errs, fmt.Sprintf("item %d: unknown criteria %d", i, it.CriteriaID))
		}
		if seen[it.CriteriaID] {
			errs = append(errs, fmt.Sprintf("item %d: criteria %d listed twice", i, it.CriteriaID))
		}
		seen[it.CriteriaID] = true
		if it.Weight <= 0 || it.Weight > 100 {
			errs = append(errs, fmt.Sprintf("item %d: weight %d out of range (0, 100]", i, it.Weight))
		}
		if it.ScaleMax < 0 {
			errs = append(errs, fmt.Sprintf("item %d: scale max %d is negative", i, it.ScaleMax))
		}
		sum += it.Weight
	}
	if sum != 100 {
		errs = append(errs, fmt.Sprintf("weights sum to %d, want 100", sum))
	}
	return errs
}
