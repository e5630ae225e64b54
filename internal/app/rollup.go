package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// EnsureMonth creates the month at OPEN if absent.
func (s *Service) EnsureMonth(ctx context.Context, key string) (*models.Month, error) {
	start, end, err := s.clock.MonthRange(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	m, err := db.EnsureMonth(ctx, s.db, key, start.Format(kpi.WeekKeyLayout), end.Format(kpi.WeekKeyLayout))
	if err != nil {
		return nil, s.fail("ensure_month", err)
	}
	return m, nil
}

func (s *Service) LockMonth(ctx context.Context, actor models.Actor, key string) (*models.Month, error) {
	return s.setMonthStatus(ctx, actor, key, models.StatusLocked)
}

func (s *Service) UnlockMonth(ctx context.Context, actor models.Actor, key string) (*models.Month, error) {
	return s.setMonthStatus(ctx, actor, key, models.StatusOpen)
}

func (s *Service) setMonthStatus(ctx context.Context, actor models.Actor, key string, status models.PeriodStatus) (*models.Month, error) {
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	if _, _, err := s.clock.MonthRange(key); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	m, err := db.SetMonthStatus(ctx, s.db, key, status, actor.ID, s.clock.Now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "month %s not found", key)
	}
	if err != nil {
		return nil, s.fail("set_month_status", err)
	}
	s.logger(ctx).Info("month status changed", zap.String("month", key), zap.String("status", string(status)), zap.Int64("by", actor.ID))
	return m, nil
}

// ComputeMonthlyResult rolls the subject's weekly results for monthKey up
// into one outcome and refreshes its DUE fund entries.
func (s *Service) ComputeMonthlyResult(ctx context.Context, actor models.Actor, subjectID int64, monthKey string) (*models.MonthlyResult, error) {
	const op = "compute_monthly_result"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	start, end, err := s.clock.MonthRange(monthKey)
	if err != nil {
		return nil, err
	}
	prevKey, err := s.clock.PreviousMonthKey(monthKey)
	if err != nil {
		return nil, err
	}
	fridays := kpi.FridaysBetween(start, end)
	weekKeys := make([]string, len(fridays))
	for i, f := range fridays {
		weekKeys[i] = f.Format(kpi.WeekKeyLayout)
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out *models.MonthlyResult
	err = db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		month, err := db.GetMonthForShare(ctx, tx, monthKey)
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "month %s not found", monthKey)
		}
		if err != nil {
			return err
		}
		if month.Status == models.StatusLocked {
			return kpi.Errorf(kpi.Conflict, "month %s is locked", monthKey)
		}
		if _, err := db.GetPerson(ctx, tx, subjectID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return kpi.Errorf(kpi.NotFound, "subject %d not found", subjectID)
			}
			return err
		}

		weekly, err := db.WeeklyResultsForWeeks(ctx, tx, subjectID, weekKeys)
		if err != nil {
			return err
		}
		prev, err := db.PreviousTier(ctx, tx, subjectID, prevKey)
		if err != nil {
			return err
		}
		scores := make([]float64, len(weekly))
		for i, w := range weekly {
			scores[i] = w.AverageScore
		}
		o := kpi.Rollup(kpi.RollupInput{
			WeeklyScores:  scores,
			ExpectedWeeks: len(fridays),
			PreviousTier:  prev,
			Policy:        s.policy,
		})

		r, err := db.UpsertMonthlyResult(ctx, tx, models.MonthlyResult{
			SubjectID:          subjectID,
			MonthID:            month.ID,
			MonthlyScore:       o.MonthlyScore,
			Tier:               o.Tier,
			ActionType:         o.ActionType,
			BaseFine:           o.BaseFine,
			FinalFine:          o.FinalFine,
			GiftType:           o.GiftType,
			WeeksCountUsed:     o.WeeksCountUsed,
			ExpectedWeeksCount: o.ExpectedWeeksCount,
			IsCompleteMonth:    o.IsCompleteMonth,
			ComputedAt:         s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if err := s.refreshFundEntries(ctx, tx, r); err != nil {
			return fmt.Errorf("refresh fund entries: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	metrics.Rollups.WithLabelValues(string(out.Tier)).Inc()
	s.logger(ctx).Info("monthly result computed",
		zap.Int64("subject_id", subjectID),
		zap.String("month", monthKey),
		zap.Float64("score", out.MonthlyScore),
		zap.String("tier", string(out.Tier)),
		zap.Int64("final_fine", out.FinalFine),
		zap.Int("weeks_used", out.WeeksCountUsed),
		zap.Int("weeks_expected", out.ExpectedWeeksCount))
	return out, nil
}

// ComputeMonth ensures the month and rolls up every subject with an active
// assignment. Per-subject failures are joined; successful results are
// still returned.
func (s *Service) ComputeMonth(ctx context.Context, actor models.Actor, monthKey string) ([]models.MonthlyResult, error) {
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	if _, err := s.EnsureMonth(ctx, monthKey); err != nil {
		return nil, err
	}
	subjects, err := s.SubjectsWithActiveAssignments(ctx)
	if err != nil {
		return nil, err
	}

	var (
		out  []models.MonthlyResult
		errs []error
	)
	for _, id := range subjects {
		r, err := s.ComputeMonthlyResult(ctx, actor, id, monthKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("subject %d: %w", id, err))
			continue
		}
		out = append(out, *r)
	}
	return out, errors.Join(errs...)
}

// refreshFundEntries keeps DUE entries in line with the result. Settled
// entries are never rewritten.
func (s *Service) refreshFundEntries(ctx context.Context, tx *sql.Tx, r *models.MonthlyResult) error {
	now := s.clock.Now()
	if r.FinalFine > 0 {
		if err := db.UpsertDueEntry(ctx, tx, r.ID, models.EntryFine, r.FinalFine, now); err != nil {
			return err
		}
	} else if err := db.DeleteDueEntry(ctx, tx, r.ID, models.EntryFine); err != nil {
		return err
	}

	if r.GiftType != nil && r.GiftAmount > 0 {
		return db.UpsertDueEntry(ctx, tx, r.ID, models.EntryBonus, r.GiftAmount, now)
	}
	return db.DeleteDueEntry(ctx, tx, r.ID, models.EntryBonus)
}

// SetGiftAmount records the policy-external gift amount for a BONUS or
// APPRECIATION result and refreshes its BONUS fund entry.
func (s *Service) SetGiftAmount(ctx context.Context, actor models.Actor, resultID, amount int64) (*models.MonthlyResult, error) {
	const op = "set_gift_amount"
	if err := kpi.Require(actor, models.Admin); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, kpi.Invalid("invalid gift amount", "gift_amount must be >= 0")
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var out *models.MonthlyResult
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := db.GetMonthlyResultForUpdate(ctx, tx, resultID)
		if errors.Is(err, db.ErrNotFound) {
			return kpi.Errorf(kpi.NotFound, "monthly result %d not found", resultID)
		}
		if err != nil {
			return err
		}
		if r.GiftType == nil {
			return kpi.Invalid("invalid gift amount", fmt.Sprintf("tier %s carries no gift", r.Tier))
		}
		if err := db.SetGiftAmount(ctx, tx, r.ID, amount); err != nil {
			return err
		}
		r.GiftAmount = amount
		if err := s.refreshFundEntries(ctx, tx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	s.logger(ctx).Info("gift amount set", zap.Int64("result_id", resultID), zap.Int64("amount", amount), zap.Int64("by", actor.ID))
	return out, nil
}

func (s *Service) GetMonthlyResult(ctx context.Context, subjectID int64, monthKey string) (*models.MonthlyResult, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	r, err := db.GetMonthlyResult(ctx, s.db, subjectID, monthKey)
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "no monthly result for subject %d in %s", subjectID, monthKey)
	}
	if err != nil {
		return nil, s.fail("get_monthly_result", err)
	}
	return r, nil
}

func (s *Service) ListMonthlyResults(ctx context.Context, monthKey string) ([]models.MonthlyResult, error) {
	if _, _, err := s.clock.MonthRange(monthKey); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.ListMonthlyResults(ctx, s.db, monthKey)
	if err != nil {
		return nil, s.fail("list_monthly_results", err)
	}
	return out, nil
}

func (s *Service) ListLockedMonths(ctx context.Context) ([]models.Month, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.ListLockedMonths(ctx, s.db)
	if err != nil {
		return nil, s.fail("list_locked_months", err)
	}
	return out, nil
}
