package app

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/metrics"
	"github.com/ahsandevhub/wetrain-kpi/internal/observability"
)

// Service is the evaluation and payroll-outcome engine. Every write runs
// in a single store transaction.
type Service struct {
	db     *sql.DB
	clock  *kpi.Clock
	log    *zap.Logger
	policy kpi.MissingWeekPolicy
}

func NewService(database *sql.DB, clock *kpi.Clock, log *zap.Logger, policy kpi.MissingWeekPolicy) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = kpi.ExcludeMissing
	}
	return &Service{db: database, clock: clock, log: log, policy: policy}
}

func (s *Service) Clock() *kpi.Clock { return s.clock }

// logger tags s.log with the job run, job name and operator carried by ctx.
func (s *Service) logger(ctx context.Context) *zap.Logger {
	l := s.log
	if id, ok := ctxutil.RunID(ctx); ok {
		l = l.With(zap.String("run_id", id))
	}
	if name, ok := ctxutil.Op(ctx); ok {
		l = l.With(zap.String("job", name))
	}
	if a, ok := ctxutil.Actor(ctx); ok {
		l = l.With(zap.Int64("operator", a.ID))
	}
	return l
}

// fail maps storage errors onto the engine taxonomy. Anything unexpected
// becomes Internal: logged, counted and sent to Sentry.
func (s *Service) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *kpi.Error
	if errors.As(err, &ke) && ke.Kind != kpi.Internal {
		return err
	}
	switch {
	case errors.Is(err, db.ErrNotFound):
		return kpi.Errorf(kpi.NotFound, "%s: not found", op)
	case db.IsForeignKeyViolation(err):
		return &kpi.Error{Kind: kpi.NotFound, Msg: op + ": referenced record not found", Err: err}
	case db.IsUniqueViolation(err):
		return &kpi.Error{Kind: kpi.Conflict, Msg: op + ": concurrent duplicate", Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("operation aborted", zap.String("op", op), zap.Error(err))
		return kpi.Wrap(err, op)
	}
	s.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	metrics.InternalErrors.WithLabelValues(op).Inc()
	observability.CaptureOp(op, err)
	return kpi.Wrap(err, op)
}
