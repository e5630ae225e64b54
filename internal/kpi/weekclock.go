package kpi

import (
	"fmt"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

const (
	WeekKeyLayout  = "2006-01-02"
	MonthKeyLayout = "2006-01"
)

// Clock maps wall-clock time onto week and month identities in a fixed
// civil timezone.
type Clock struct {
	Loc *time.Location
	Now func() time.Time
}

func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{Loc: loc, Now: time.Now}
}

func (c *Clock) now() time.Time { return c.Now().In(c.Loc) }

// CurrentWeek returns today if it is a Friday, otherwise the most recent
// Friday.
func (c *Clock) CurrentWeek() time.Time {
	return FridayOnOrBefore(c.now())
}

func FridayOnOrBefore(t time.Time) time.Time {
	back := (int(t.Weekday()) - int(time.Friday) + 7) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, t.Location())
}

// ParseWeekKey parses YYYY-MM-DD in loc and rejects dates that are not
// Fridays.
func (c *Clock) ParseWeekKey(key string) (time.Time, error) {
	d, err := time.ParseInLocation(WeekKeyLayout, key, c.Loc)
	if err != nil {
		return time.Time{}, Invalid("bad week key", fmt.Sprintf("week_key %q: expected YYYY-MM-DD", key))
	}
	if d.Weekday() != time.Friday {
		return time.Time{}, Invalid("bad week key", fmt.Sprintf("week_key %s is a %s, not a Friday", key, d.Weekday()))
	}
	return d, nil
}

// Cutoff is the last writable instant of the week: Friday 23:59:59 in the
// clock's zone. Only the civil date fields of friday are used.
func (c *Clock) Cutoff(friday time.Time) time.Time {
	y, m, d := friday.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, c.Loc)
}

// IsLocked is evaluated on every read. A LOCKED status always locks.
// Past the cutoff the week is locked unless an administrator forced it
// back to OPEN after that cutoff.
func (c *Clock) IsLocked(w models.Week) bool {
	if w.Status == models.StatusLocked {
		return true
	}
	if !c.now().After(c.Cutoff(w.WeekKey)) {
		return false
	}
	return !c.Overridden(w)
}

// Overridden reports whether w carries an administrator unlock stamped
// after its cutoff. An earlier stamp does not suspend the time lock.
func (c *Clock) Overridden(w models.Week) bool {
	return w.UnlockedAt != nil && w.UnlockedAt.After(c.Cutoff(w.WeekKey))
}

// ElapsedUnlocked reports whether a scheduled job may flip the stored
// status to LOCKED.
func (c *Clock) ElapsedUnlocked(w models.Week) bool {
	return w.Status == models.StatusOpen && !c.Overridden(w) && c.now().After(c.Cutoff(w.WeekKey))
}

func (c *Clock) CurrentMonthKey() string {
	return c.now().Format(MonthKeyLayout)
}

// MonthRange returns the first and last civil day of a YYYY-MM key.
func (c *Clock) MonthRange(key string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(MonthKeyLayout, key, c.Loc)
	if err != nil {
		return time.Time{}, time.Time{}, Invalid("bad month key", fmt.Sprintf("month_key %q: expected YYYY-MM", key))
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// PreviousMonthKey returns the YYYY-MM key immediately before key.
func (c *Clock) PreviousMonthKey(key string) (string, error) {
	start, _, err := c.MonthRange(key)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, -1, 0).Format(MonthKeyLayout), nil
}

// FridaysBetween lists the Fridays in [start, end], both civil days.
func FridaysBetween(start, end time.Time) []time.Time {
	var out []time.Time
	first := start
	if off := (int(time.Friday) - int(start.Weekday()) + 7) % 7; off > 0 {
		y, m, d := start.Date()
		first = time.Date(y, m, d+off, 0, 0, 0, 0, start.Location())
	}
	for f := first; !f.After(end); {
		out = append(out, f)
		y, m, d := f.Date()
		f = time.Date(y, m, d+7, 0, 0, 0, 0, f.Location())
	}
	return out
}
