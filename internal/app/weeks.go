package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// EnsureCurrentWeek creates the current Friday's week at OPEN if needed.
func (s *Service) EnsureCurrentWeek(ctx context.Context) (*models.Week, error) {
	return s.EnsureWeek(ctx, s.clock.CurrentWeek().Format(kpi.WeekKeyLayout))
}

// EnsureWeek is idempotent; non-Friday keys are rejected.
func (s *Service) EnsureWeek(ctx context.Context, key string) (*models.Week, error) {
	if _, err := s.clock.ParseWeekKey(key); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	w, err := db.EnsureWeek(ctx, s.db, key)
	if err != nil {
		return nil, s.fail("ensure_week", err)
	}
	return w, nil
}

// WeekStatus returns the stored week and whether it is locked right now.
func (s *Service) WeekStatus(ctx context.Context, key string) (*models.Week, bool, error) {
	if _, err := s.clock.ParseWeekKey(key); err != nil {
		return nil, false, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	w, err := db.GetWeekByKey(ctx, s.db, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, kpi.Errorf(kpi.NotFound, "week %s not found", key)
	}
	if err != nil {
		return nil, false, s.fail("week_status", err)
	}
	return w, s.clock.IsLocked(*w), nil
}

// UnlockWeek forces a week back to OPEN past its natural cutoff. There is
// no matching lock operation: locking is derived from time.
func (s *Service) UnlockWeek(ctx context.Context, actor models.Actor, key string) (*models.Week, error) {
	if err := kpi.Require(actor, models.SuperAdmin); err != nil {
		return nil, err
	}
	friday, err := s.clock.ParseWeekKey(key)
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().After(s.clock.Cutoff(friday)) {
		return nil, kpi.Errorf(kpi.Conflict, "week %s is still open until its cutoff", key)
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	w, err := db.UnlockWeek(ctx, s.db, key, actor.ID, s.clock.Now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "week %s not found", key)
	}
	if err != nil {
		return nil, s.fail("unlock_week", err)
	}
	s.logger(ctx).Info("week unlocked", zap.String("week", key), zap.Int64("by", actor.ID))
	return w, nil
}

// LockElapsedWeeks persists the time-derived lock for weeks past cutoff.
// Administrator overrides are skipped.
func (s *Service) LockElapsedWeeks(ctx context.Context) (int, error) {
	const op = "lock_elapsed_weeks"
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	weeks, err := db.OpenWeeksUpTo(ctx, s.db, s.clock.CurrentWeek().Format(kpi.WeekKeyLayout))
	if err != nil {
		return 0, s.fail(op, err)
	}
	locked := 0
	for _, w := range weeks {
		if !s.clock.ElapsedUnlocked(w) {
			continue
		}
		ok, err := db.LockWeekIfOpen(ctx, s.db, w.ID, s.clock.Cutoff(w.WeekKey))
		if err != nil {
			return locked, s.fail(op, err)
		}
		if ok {
			locked++
			metrics.WeekLocks.Inc()
			s.logger(ctx).Info("week locked", zap.String("week", w.Key()))
		}
	}
	return locked, nil
}
