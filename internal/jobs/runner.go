package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/observability"
)

type Job func(ctx context.Context) error

// Runner fires stateless periodic triggers. Jobs must be safe to re-run.
type Runner struct {
	ctx context.Context
	log *zap.Logger
}

func New(ctx context.Context, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctx: ctx, log: log}
}

// Every runs fn once immediately and then on each tick until the runner's
// context ends.
func (r *Runner) Every(interval time.Duration, name string, fn Job) {
	go func() {
		_ = r.Run(name, fn)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-t.C:
				_ = r.Run(name, fn)
			}
		}
	}()
}

// Run executes one tagged run of fn, recording metrics and recovering
// panics.
func (r *Runner) Run(name string, fn Job) (err error) {
	runID := uuid.NewString()
	ctx := ctxutil.WithOp(ctxutil.WithRunID(r.ctx, runID), name)
	log := r.log.With(zap.String("job", name), zap.String("run_id", runID))
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in job %s: %v", name, rec)
			observability.CaptureErr(err)
		}
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			jobErrors.WithLabelValues(name).Inc()
			log.Error("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			return
		}
		log.Debug("job done", zap.Duration("took", time.Since(start)))
	}()

	return fn(ctx)
}
