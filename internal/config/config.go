package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
)

type Config struct {
	DatabaseURL  string
	Location     *time.Location
	HTTPAddr     string
	LogLevel     string
	Env          string // dev|prod
	SentryDSN    string
	BotToken     string // empty disables the Telegram relay
	MissingWeeks kpi.MissingWeekPolicy
	JobInterval  time.Duration
	ReminderHour int
}

// Load reads the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tz := getenv("TZ", "Asia/Dhaka")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TZ %q: %w", tz, err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("required env DATABASE_URL is empty")
	}

	policy, err := kpi.ParseMissingWeekPolicy(os.Getenv("KPI_MISSING_WEEKS"))
	if err != nil {
		return nil, fmt.Errorf("KPI_MISSING_WEEKS: %w", err)
	}

	interval, err := time.ParseDuration(getenv("JOB_INTERVAL", "1h"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("JOB_INTERVAL: bad duration %q", os.Getenv("JOB_INTERVAL"))
	}

	hour, err := parseHour(getenv("REMINDER_HOUR", "15"))
	if err != nil {
		return nil, fmt.Errorf("REMINDER_HOUR: %w", err)
	}

	return &Config{
		DatabaseURL:  dsn,
		Location:     loc,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		Env:          getenv("ENV", "dev"),
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		BotToken:     os.Getenv("BOT_TOKEN"),
		MissingWeeks: policy,
		JobInterval:  interval,
		ReminderHour: hour,
	}, nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func parseHour(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad hour %q: %w", s, err)
	}
	if n < 0 || n > 23 {
		return 0, fmt.Errorf("hour %d out of range", n)
	}
	return n, nil
}
