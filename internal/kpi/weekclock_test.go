package kpi

import (
	"testing"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/models"
)

func fixedClock(t *testing.T, at string) *Clock {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now, err := time.ParseInLocation("2006-01-02 15:04:05", at, loc)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClock(loc)
	c.Now = func() time.Time { return now }
	return c
}

func TestCurrentWeek(t *testing.T) {
	cases := []struct {
		now  string
		want string
	}{
		{"2025-06-13 10:00:00", "2025-06-13"}, // Friday
		{"2025-06-13 23:59:59", "2025-06-13"},
		{"2025-06-14 00:00:01", "2025-06-13"}, // Saturday
		{"2025-06-19 18:00:00", "2025-06-13"}, // Thursday
		{"2025-06-20 00:00:00", "2025-06-20"},
		{"2025-03-01 12:00:00", "2025-02-28"}, // across a month boundary
	}
	for _, tc := range cases {
		t.Run(tc.now, func(t *testing.T) {
			c := fixedClock(t, tc.now)
			if got := c.CurrentWeek().Format(WeekKeyLayout); got != tc.want {
				t.Fatalf("CurrentWeek() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseWeekKey(t *testing.T) {
	c := fixedClock(t, "2025-06-13 10:00:00")
	if _, err := c.ParseWeekKey("2025-06-13"); err != nil {
		t.Fatalf("friday rejected: %v", err)
	}
	for _, bad := range []string{"2025-06-12", "2025-06-14", "13.06.2025", ""} {
		if _, err := c.ParseWeekKey(bad); !IsKind(err, InvalidInput) {
			t.Fatalf("ParseWeekKey(%q) err = %v, want invalid input", bad, err)
		}
	}
}

func TestIsLocked(t *testing.T) {
	friday := func(c *Clock) time.Time {
		d, _ := c.ParseWeekKey("2025-06-13")
		return d
	}

	t.Run("open_before_cutoff", func(t *testing.T) {
		c := fixedClock(t, "2025-06-13 23:59:59")
		w := models.Week{WeekKey: friday(c), Status: models.StatusOpen}
		if c.IsLocked(w) {
			t.Fatal("week locked before cutoff")
		}
	})

	t.Run("time_lock_after_following_monday", func(t *testing.T) {
		c := fixedClock(t, "2025-06-16 09:00:00")
		w := models.Week{WeekKey: friday(c), Status: models.StatusOpen}
		if !c.IsLocked(w) {
			t.Fatal("stored OPEN must not keep an elapsed week writable")
		}
		if !c.ElapsedUnlocked(w) {
			t.Fatal("elapsed week should be eligible for the lock flip")
		}
	})

	t.Run("stored_lock_before_cutoff", func(t *testing.T) {
		c := fixedClock(t, "2025-06-13 08:00:00")
		w := models.Week{WeekKey: friday(c), Status: models.StatusLocked}
		if !c.IsLocked(w) {
			t.Fatal("LOCKED status ignored")
		}
	})

	t.Run("admin_unlock_override", func(t *testing.T) {
		c := fixedClock(t, "2025-06-20 09:00:00")
		at := c.Now()
		w := models.Week{WeekKey: friday(c), Status: models.StatusOpen, UnlockedAt: &at}
		if c.IsLocked(w) {
			t.Fatal("unlocked week should stay writable")
		}
		if c.ElapsedUnlocked(w) {
			t.Fatal("override must not be flipped back by the job")
		}
	})

	t.Run("unlock_before_cutoff_is_not_an_override", func(t *testing.T) {
		c := fixedClock(t, "2025-06-27 09:00:00")
		early := time.Date(2025, 6, 11, 10, 0, 0, 0, c.Loc)
		w := models.Week{WeekKey: friday(c), Status: models.StatusOpen, UnlockedAt: &early}
		if c.Overridden(w) {
			t.Fatal("early stamp counted as override")
		}
		if !c.IsLocked(w) {
			t.Fatal("week stays writable after cutoff")
		}
		if !c.ElapsedUnlocked(w) {
			t.Fatal("job must be able to lock the week")
		}
	})
}

func TestMonthRangeAndFridays(t *testing.T) {
	c := fixedClock(t, "2025-06-13 10:00:00")

	cases := []struct {
		month   string
		fridays []string
	}{
		{"2025-05", []string{"2025-05-02", "2025-05-09", "2025-05-16", "2025-05-23", "2025-05-30"}},
		{"2025-06", []string{"2025-06-06", "2025-06-13", "2025-06-20", "2025-06-27"}},
		{"2025-08", []string{"2025-08-01", "2025-08-08", "2025-08-15", "2025-08-22", "2025-08-29"}},
	}
	for _, tc := range cases {
		t.Run(tc.month, func(t *testing.T) {
			start, end, err := c.MonthRange(tc.month)
			if err != nil {
				t.Fatal(err)
			}
			got := FridaysBetween(start, end)
			if len(got) != len(tc.fridays) {
				t.Fatalf("got %d fridays, want %d", len(got), len(tc.fridays))
			}
			for i, f := range got {
				if f.Format(WeekKeyLayout) != tc.fridays[i] {
					t.Fatalf("friday %d = %s, want %s", i, f.Format(WeekKeyLayout), tc.fridays[i])
				}
			}
		})
	}

	if _, _, err := c.MonthRange("2025-13"); !IsKind(err, InvalidInput) {
		t.Fatalf("bad month accepted: %v", err)
	}
	prev, err := c.PreviousMonthKey("2025-01")
	if err != nil || prev != "2024-12" {
		t.Fatalf("PreviousMonthKey = %q, %v", prev, err)
	}
}
