package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpi", Name: "submissions_total", Help: "Score submissions by outcome",
	}, []string{"outcome"})
	SubmissionScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kpi", Name: "submission_total_score", Help: "Distribution of accepted submission totals",
		Buckets: []float64{50, 60, 70, 80, 90, 100},
	})
	CriteriaReplacements = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kpi", Name: "criteria_set_replacements_total", Help: "Criteria set versions created",
	})
	Rollups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpi", Name: "monthly_rollups_total", Help: "Monthly results computed by tier",
	}, []string{"tier"})
	FundTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpi", Name: "fund_transitions_total", Help: "Fund entry status changes",
	}, []string{"entry_type", "status"})
	WeekLocks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kpi", Name: "week_locks_total", Help: "Weeks flipped to LOCKED by the scheduler",
	})
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpi", Name: "deliveries_total", Help: "Relay deliveries by type and status",
	}, []string{"type", "status"})
	InternalErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kpi", Name: "internal_errors_total", Help: "Unexpected failures by operation",
	}, []string{"op"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kpi", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Submissions, SubmissionScore, CriteriaReplacements, Rollups,
		FundTransitions, WeekLocks, Deliveries, InternalErrors, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
