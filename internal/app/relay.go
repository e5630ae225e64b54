package app

import (
	"context"
	"errors"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// Read side used by the notification relay. The core never sends anything
// itself; it only answers these questions and stores delivery outcomes.

// HasPendingMarking reports whether any active marker of the subject has
// not yet submitted for the current week.
func (s *Service) HasPendingMarking(ctx context.Context, subjectID int64) (bool, error) {
	pairs, err := s.PendingMarkings(ctx, s.clock.CurrentWeek().Format(kpi.WeekKeyLayout), subjectID)
	if err != nil {
		return false, err
	}
	return len(pairs) > 0, nil
}

// PendingMarkings lists (marker, subject) pairs still missing a submission
// for weekKey. subjectID of 0 covers every subject.
func (s *Service) PendingMarkings(ctx context.Context, weekKey string, subjectID int64) ([]db.PendingPair, error) {
	if _, err := s.clock.ParseWeekKey(weekKey); err != nil {
		return nil, err
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.PendingMarkings(ctx, s.db, weekKey, subjectID)
	if err != nil {
		return nil, s.fail("pending_markings", err)
	}
	return out, nil
}

// MarksheetLogged is the idempotency check before sending a marksheet.
func (s *Service) MarksheetLogged(ctx context.Context, subjectID int64, monthKey string) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	ok, err := db.DeliveryLogged(ctx, s.db, subjectID, monthKey, models.DeliveryMarksheet)
	if err != nil {
		return false, s.fail("marksheet_logged", err)
	}
	return ok, nil
}

func (s *Service) ReminderLogged(ctx context.Context, subjectID, recipientID int64, weekKey string) (bool, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	ok, err := db.ReminderLogged(ctx, s.db, subjectID, recipientID, weekKey)
	if err != nil {
		return false, s.fail("reminder_logged", err)
	}
	return ok, nil
}

// AppendDeliveryLog stores what the relay attempted. Failures are kept as
// data and not interpreted.
func (s *Service) AppendDeliveryLog(ctx context.Context, l models.DeliveryLog) (*models.DeliveryLog, error) {
	if l.SubjectID <= 0 {
		return nil, kpi.Invalid("invalid delivery log", "subject_id is required")
	}
	switch l.Type {
	case models.DeliveryReminder, models.DeliveryMarksheet:
	default:
		return nil, kpi.Invalid("invalid delivery log", "unknown type "+string(l.Type))
	}
	switch l.Status {
	case models.DeliverySent, models.DeliveryFailed:
	default:
		return nil, kpi.Invalid("invalid delivery log", "unknown status "+string(l.Status))
	}
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	out, err := db.AppendDeliveryLog(ctx, s.db, l)
	if err != nil {
		return nil, s.fail("append_delivery_log", err)
	}
	metrics.Deliveries.WithLabelValues(string(l.Type), string(l.Status)).Inc()
	return out, nil
}

func (s *Service) GetPerson(ctx context.Context, id int64) (*models.Person, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	p, err := db.GetPerson(ctx, s.db, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, kpi.Errorf(kpi.NotFound, "person %d not found", id)
	}
	if err != nil {
		return nil, s.fail("get_person", err)
	}
	return p, nil
}
