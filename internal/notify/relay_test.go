package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

type fakeCore struct {
	clock   *kpi.Clock
	pending []db.PendingPair
	people  map[int64]models.Person
	results []models.MonthlyResult
	logs    []models.DeliveryLog
}

func (f *fakeCore) Clock() *kpi.Clock { return f.clock }

func (f *fakeCore) PendingMarkings(_ context.Context, _ string, _ int64) ([]db.PendingPair, error) {
	return f.pending, nil
}

func (f *fakeCore) ReminderLogged(_ context.Context, subjectID, recipientID int64, weekKey string) (bool, error) {
	for _, l := range f.logs {
		if l.Type == models.DeliveryReminder && l.Status == models.DeliverySent &&
			l.SubjectID == subjectID && *l.RecipientID == recipientID && l.WeekKey.Format(kpi.WeekKeyLayout) == weekKey {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCore) MarksheetLogged(_ context.Context, subjectID int64, monthKey string) (bool, error) {
	for _, l := range f.logs {
		if l.Type == models.DeliveryMarksheet && l.Status == models.DeliverySent &&
			l.SubjectID == subjectID && *l.MonthKey == monthKey {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCore) AppendDeliveryLog(_ context.Context, l models.DeliveryLog) (*models.DeliveryLog, error) {
	l.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, l)
	return &l, nil
}

func (f *fakeCore) ListMonthlyResults(_ context.Context, _ string) ([]models.MonthlyResult, error) {
	return f.results, nil
}

func (f *fakeCore) WeeklyResultsFor(_ context.Context, _ int64, _ []string) ([]models.WeeklyResult, error) {
	return nil, nil
}

func (f *fakeCore) GetPerson(_ context.Context, id int64) (*models.Person, error) {
	p, ok := f.people[id]
	if !ok {
		return nil, kpi.Errorf(kpi.NotFound, "person %d not found", id)
	}
	return &p, nil
}

type sent struct {
	chat int64
	text string
	file string
}

type fakeSender struct {
	out  []sent
	fail map[int64]bool
}

func (s *fakeSender) SendText(chatID int64, text string) error {
	if s.fail[chatID] {
		return errors.New("Bad Request: chat not found")
	}
	s.out = append(s.out, sent{chat: chatID, text: text})
	return nil
}

func (s *fakeSender) SendDocument(chatID int64, filename string, data []byte, _ string) error {
	if s.fail[chatID] {
		return errors.New("Bad Request: chat not found")
	}
	if len(data) == 0 {
		return errors.New("empty document")
	}
	s.out = append(s.out, sent{chat: chatID, file: filename})
	return nil
}

func ptr[T any](v T) *T { return &v }

func newCore() *fakeCore {
	clock := kpi.NewClock(time.UTC)
	clock.Now = func() time.Time { return time.Date(2025, 6, 13, 12, 0, 0, 0, time.UTC) }
	return &fakeCore{
		clock: clock,
		people: map[int64]models.Person{
			1: {ID: 1, Name: "Marker One", TelegramID: ptr(int64(101))},
			2: {ID: 2, Name: "Marker Two", TelegramID: ptr(int64(102))},
			9: {ID: 9, Name: "Subject Nine", TelegramID: ptr(int64(109))},
			8: {ID: 8, Name: "Subject Eight"},
		},
	}
}

func TestSendRemindersIsIdempotent(t *testing.T) {
	core := newCore()
	core.pending = []db.PendingPair{
		{MarkerID: 1, SubjectID: 9, TelegramID: ptr(int64(101))},
		{MarkerID: 2, SubjectID: 9, TelegramID: ptr(int64(102))},
		{MarkerID: 3, SubjectID: 9},
	}
	snd := &fakeSender{fail: map[int64]bool{102: true}}
	r := NewRelay(core, snd, nil)

	n, err := r.SendReminders(context.Background(), "2025-06-13")
	if err != nil {
		t.Fatalf("SendReminders: %v", err)
	}
	if n != 1 {
		t.Fatalf("sent = %d, want 1", n)
	}
	if len(core.logs) != 2 {
		t.Fatalf("logs = %d, want 2 (one sent, one failed)", len(core.logs))
	}
	if core.logs[1].Status != models.DeliveryFailed || core.logs[1].Error == nil {
		t.Fatalf("second log = %+v, want FAILED with error", core.logs[1])
	}

	delete(snd.fail, 102)
	n, err = r.SendReminders(context.Background(), "2025-06-13")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if n != 1 {
		t.Fatalf("second run sent = %d, want only the previously failed marker", n)
	}
	if len(snd.out) != 2 {
		t.Fatalf("messages = %d, want 2", len(snd.out))
	}
}

func TestSendRemindersRejectsNonFriday(t *testing.T) {
	r := NewRelay(newCore(), &fakeSender{}, nil)
	if _, err := r.SendReminders(context.Background(), "2025-06-12"); !kpi.IsKind(err, kpi.InvalidInput) {
		t.Fatalf("err = %v, want InvalidInput", err)
	}
}

func TestSendMarksheetsOncePerSubject(t *testing.T) {
	core := newCore()
	core.results = []models.MonthlyResult{
		{SubjectID: 9, MonthlyScore: 84, Tier: models.TierAppreciation, ActionType: models.ActionAppreciation},
		{SubjectID: 8, MonthlyScore: 45, Tier: models.TierFine, ActionType: models.ActionFine, BaseFine: 1000, FinalFine: 1000},
	}
	snd := &fakeSender{}
	r := NewRelay(core, snd, nil)

	n, err := r.SendMarksheets(context.Background(), "2025-06")
	if err != nil {
		t.Fatalf("SendMarksheets: %v", err)
	}
	if n != 1 {
		t.Fatalf("sent = %d, want 1 (subject 8 has no chat)", n)
	}
	if snd.out[0].file != "Marksheet - Subject Nine - 2025-06.xlsx" {
		t.Fatalf("file = %q", snd.out[0].file)
	}

	n, err = r.SendMarksheets(context.Background(), "2025-06")
	if err != nil || n != 0 {
		t.Fatalf("rerun: n=%d err=%v, want nothing sent", n, err)
	}
	if len(core.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(core.logs))
	}
}
