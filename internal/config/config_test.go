package config

import (
	"testing"
	"time"

	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://kpi@localhost/kpi")
	t.Setenv("TZ", "UTC")
	t.Setenv("KPI_MISSING_WEEKS", "")
	t.Setenv("JOB_INTERVAL", "")
	t.Setenv("REMINDER_HOUR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MissingWeeks != kpi.ExcludeMissing {
		t.Fatalf("policy = %q", cfg.MissingWeeks)
	}
	if cfg.JobInterval != time.Hour || cfg.ReminderHour != 15 || cfg.HTTPAddr != ":8080" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing_dsn", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad_policy", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("TZ", "UTC")
		t.Setenv("KPI_MISSING_WEEKS", "half")
		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad_hour", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://x")
		t.Setenv("TZ", "UTC")
		t.Setenv("KPI_MISSING_WEEKS", "")
		t.Setenv("REMINDER_HOUR", "25")
		if _, err := Load(); err == nil {
			t.Fatal("expected error")
		}
	})
}
