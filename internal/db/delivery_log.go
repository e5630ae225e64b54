package db

import (
	"context"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func AppendDeliveryLog(ctx context.Context, q Querier, l models.DeliveryLog) (*models.DeliveryLog, error) {
	var week *string
	if l.WeekKey != nil {
		k := l.WeekKey.Format("2006-01-02")
		week = &k
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO delivery_logs (subject_id, recipient_id, month_key, week_key, type, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		l.SubjectID, l.RecipientID, l.MonthKey, week, string(l.Type), string(l.Status), l.Error,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// DeliveryLogged reports whether a SENT record of type t exists for
// subject and month.
func DeliveryLogged(ctx context.Context, q Querier, subjectID int64, monthKey string, t models.DeliveryType) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_logs
			WHERE subject_id = $1 AND month_key = $2 AND type = $3 AND status = 'SENT'
		)`, subjectID, monthKey, string(t)).Scan(&ok)
	return ok, err
}

// ReminderLogged reports whether a reminder was sent to recipient about
// subject for the week key.
func ReminderLogged(ctx context.Context, q Querier, subjectID, recipientID int64, weekKey string) (bool, error) {
	var ok bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_logs
			WHERE subject_id = $1 AND recipient_id = $2 AND week_key = $3
			  AND type = 'REMINDER' AND status = 'SENT'
		)`, subjectID, recipientID, weekKey).Scan(&ok)
	return ok, err
}
