package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/app"
	"github.com/ahsandevhub/wetrain-kpi/internal/config"
	"github.com/ahsandevhub/wetrain-kpi/internal/ctxutil"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
	"github.com/ahsandevhub/wetrain-kpi/internal/logging"
	"github.com/ahsandevhub/wetrain-kpi/internal/models"
	"github.com/ahsandevhub/wetrain-kpi/internal/observability"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "kpi",
	Short:         "Weekly KPI evaluation and monthly payroll outcomes",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		msg := err.Error()
		var ke *kpi.Error
		if errors.As(err, &ke) {
			msg = ke.Public()
		}
		fmt.Fprintln(os.Stderr, "error:", msg)
		os.Exit(1)
	}
}

// runtime is what every command needs after bootstrap.
type runtime struct {
	cfg *config.Config
	log *logging.Log
	db  *sql.DB
	svc *app.Service

	flush func()
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
	r.flush()
	r.log.Closer()
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		lg.Base.Warn("sentry init failed", zap.Error(err))
	}

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		flush()
		lg.Closer()
		return nil, fmt.Errorf("open database: %w", err)
	}
	clock := kpi.NewClock(cfg.Location)
	svc := app.NewService(database, clock, lg.Component("engine"), cfg.MissingWeeks)
	return &runtime{cfg: cfg, log: lg, db: database, svc: svc, flush: flush}, nil
}

// operator resolves --actor into the identity used for privileged calls
// and tags the command context with it.
func (r *runtime) operator(cmd *cobra.Command) (models.Actor, error) {
	ctx := cmd.Context()
	id, _ := cmd.Flags().GetInt64("actor")
	if id == 0 {
		return models.Actor{}, kpi.Errorf(kpi.Unauthorized, "--actor is required")
	}
	p, err := r.svc.GetPerson(ctx, id)
	if err != nil {
		return models.Actor{}, err
	}
	if !p.IsActive {
		return models.Actor{}, kpi.Errorf(kpi.Forbidden, "person %d is inactive", id)
	}
	actor := models.Actor{ID: p.ID, Role: p.Role}
	cmd.SetContext(ctxutil.WithActor(ctx, actor))
	return actor, nil
}
