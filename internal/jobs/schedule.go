package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

type Engine interface {
	Clock() *kpi.Clock
	EnsureCurrentWeek(ctx context.Context) (*models.Week, error)
	LockElapsedWeeks(ctx context.Context) (int, error)
	ListLockedMonths(ctx context.Context) ([]models.Month, error)
}

type Relay interface {
	SendReminders(ctx context.Context, weekKey string) (int, error)
	SendMarksheets(ctx context.Context, monthKey string) (int, error)
}

// Schedule wires the periodic triggers. Relay may be nil, in which case
// only the week jobs run.
type Schedule struct {
	Engine       Engine
	Relay        Relay
	ReminderHour int
	Log          *zap.Logger
}

func (s Schedule) Register(r *Runner, interval time.Duration) {
	r.Every(interval, "ensure_week", s.EnsureWeek)
	r.Every(interval, "lock_weeks", s.LockWeeks)
	if s.Relay == nil {
		return
	}
	r.Every(interval, "reminders", s.Reminders)
	r.Every(interval, "marksheets", s.Marksheets)
}

func (s Schedule) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s Schedule) EnsureWeek(ctx context.Context) error {
	w, err := s.Engine.EnsureCurrentWeek(ctx)
	if err != nil {
		return err
	}
	s.log().Debug("current week ensured", zap.String("week", w.Key()))
	return nil
}

func (s Schedule) LockWeeks(ctx context.Context) error {
	n, err := s.Engine.LockElapsedWeeks(ctx)
	if n > 0 {
		s.log().Info("weeks locked", zap.Int("count", n))
	}
	return err
}

// Reminders nudges pending markers on Friday from ReminderHour onwards.
func (s Schedule) Reminders(ctx context.Context) error {
	clock := s.Engine.Clock()
	if !reminderDue(clock.Now().In(clock.Loc), s.ReminderHour) {
		return nil
	}
	week := clock.CurrentWeek().Format(kpi.WeekKeyLayout)
	n, err := s.Relay.SendReminders(ctx, week)
	if n > 0 {
		s.log().Info("reminders sent", zap.String("week", week), zap.Int("count", n))
	}
	return err
}

// Marksheets delivers workbooks for every locked month; delivery logs make
// repeated runs no-ops.
func (s Schedule) Marksheets(ctx context.Context) error {
	months, err := s.Engine.ListLockedMonths(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, m := range months {
		n, err := s.Relay.SendMarksheets(ctx, m.MonthKey)
		if err != nil {
			errs = append(errs, fmt.Errorf("month %s: %w", m.MonthKey, err))
		}
		if n > 0 {
			s.log().Info("marksheets sent", zap.String("month", m.MonthKey), zap.Int("count", n))
		}
	}
	return errors.Join(errs...)
}

func reminderDue(now time.Time, hour int) bool {
	return now.Weekday() == time.Friday && now.Hour() >= hour
}
