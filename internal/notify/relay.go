package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/export"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

// Core is the part of the engine the relay reads from and logs into.
type Core interface {
	Clock() *kpi.Clock
	PendingMarkings(ctx context.Context, weekKey string, subjectID int64) ([]db.PendingPair, error)
	ReminderLogged(ctx context.Context, subjectID, recipientID int64, weekKey string) (bool, error)
	MarksheetLogged(ctx context.Context, subjectID int64, monthKey string) (bool, error)
	AppendDeliveryLog(ctx context.Context, l models.DeliveryLog) (*models.DeliveryLog, error)
	ListMonthlyResults(ctx context.Context, monthKey string) ([]models.MonthlyResult, error)
	WeeklyResultsFor(ctx context.Context, subjectID int64, weekKeys []string) ([]models.WeeklyResult, error)
	GetPerson(ctx context.Context, id int64) (*models.Person, error)
}

type Relay struct {
	core   Core
	sender Sender
	log    *zap.Logger
}

func NewRelay(core Core, sender Sender, log *zap.Logger) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	return &Relay{core: core, sender: sender, log: log}
}

// SendReminders messages every marker who still owes a submission for
// weekKey. Pairs already reminded successfully are skipped.
func (r *Relay) SendReminders(ctx context.Context, weekKey string) (int, error) {
	week, err := r.core.Clock().ParseWeekKey(weekKey)
	if err != nil {
		return 0, err
	}
	pairs, err := r.core.PendingMarkings(ctx, weekKey, 0)
	if err != nil {
		return 0, err
	}

	names := make(map[int64]string)
	sent := 0
	var errs []error
	for _, p := range pairs {
		if p.TelegramID == nil {
			r.log.Debug("marker has no telegram id", zap.Int64("marker_id", p.MarkerID))
			continue
		}
		done, err := r.core.ReminderLogged(ctx, p.SubjectID, p.MarkerID, weekKey)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if done {
			continue
		}
		name, ok := names[p.SubjectID]
		if !ok {
			subject, err := r.core.GetPerson(ctx, p.SubjectID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			name = subject.Name
			names[p.SubjectID] = name
		}

		text := fmt.Sprintf("KPI reminder: your marking for %s for the week ending %s is still pending.", name, weekKey)
		sendErr := r.sender.SendText(*p.TelegramID, text)
		recipient := p.MarkerID
		entry := models.DeliveryLog{
			SubjectID:   p.SubjectID,
			RecipientID: &recipient,
			WeekKey:     &week,
			Type:        models.DeliveryReminder,
		}
		if err := r.record(ctx, entry, sendErr); err != nil {
			errs = append(errs, err)
		}
		if sendErr == nil {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

// SendMarksheets delivers each subject's workbook for monthKey once.
func (r *Relay) SendMarksheets(ctx context.Context, monthKey string) (int, error) {
	start, end, err := r.core.Clock().MonthRange(monthKey)
	if err != nil {
		return 0, err
	}
	var weekKeys []string
	for _, f := range kpi.FridaysBetween(start, end) {
		weekKeys = append(weekKeys, f.Format(kpi.WeekKeyLayout))
	}
	results, err := r.core.ListMonthlyResults(ctx, monthKey)
	if err != nil {
		return 0, err
	}

	sent := 0
	var errs []error
	for _, res := range results {
		ok, err := r.sendMarksheet(ctx, monthKey, weekKeys, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("subject %d: %w", res.SubjectID, err))
		}
		if ok {
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (r *Relay) sendMarksheet(ctx context.Context, monthKey string, weekKeys []string, res models.MonthlyResult) (bool, error) {
	done, err := r.core.MarksheetLogged(ctx, res.SubjectID, monthKey)
	if err != nil || done {
		return false, err
	}
	subject, err := r.core.GetPerson(ctx, res.SubjectID)
	if err != nil {
		return false, err
	}
	if subject.TelegramID == nil {
		r.log.Debug("subject has no telegram id", zap.Int64("subject_id", subject.ID))
		return false, nil
	}
	weekly, err := r.core.WeeklyResultsFor(ctx, res.SubjectID, weekKeys)
	if err != nil {
		return false, err
	}
	f, err := export.Marksheet(*subject, res, weekly)
	if err != nil {
		return false, err
	}
	data, err := export.Bytes(f)
	_ = f.Close()
	if err != nil {
		return false, err
	}

	caption := fmt.Sprintf("KPI %s: %.2f (%s)", monthKey, res.MonthlyScore, res.Tier)
	sendErr := r.sender.SendDocument(*subject.TelegramID, export.MarksheetFilename(subject.Name, monthKey), data, caption)
	mk := monthKey
	entry := models.DeliveryLog{
		SubjectID:   res.SubjectID,
		RecipientID: &subject.ID,
		MonthKey:    &mk,
		Type:        models.DeliveryMarksheet,
	}
	if err := r.record(ctx, entry, sendErr); err != nil {
		return sendErr == nil, err
	}
	return sendErr == nil, nil
}

// record stores the outcome of one send. A failed send is data, not an
// error of the run.
func (r *Relay) record(ctx context.Context, l models.DeliveryLog, sendErr error) error {
	l.Status = models.DeliverySent
	if sendErr != nil {
		msg := sendErr.Error()
		l.Status = models.DeliveryFailed
		l.Error = &msg
		r.log.Warn("delivery failed",
			zap.String("type", string(l.Type)),
			zap.Int64("subject_id", l.SubjectID),
			zap.Error(sendErr))
	}
	_, err := r.core.AppendDeliveryLog(ctx, l)
	return err
}
