package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahsandevhub/wetrain-kpi/internal/app"
	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/jobs"
	"github.com/ahsandevhub/wetrain-kpi/internal/notify"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "Apply migrations before starting")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops server and the periodic jobs",
	Long: `Serves /healthz and /metrics and runs the scheduled triggers:
ensure the current week, persist elapsed week locks and, when BOT_TOKEN
is set, Friday reminders and marksheets for locked months.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log.Base

	if m, _ := cmd.Flags().GetBool("migrate"); m {
		if err := db.Migrate(rt.db); err != nil {
			return err
		}
	}

	app.StartOps(ctx, rt.cfg.HTTPAddr, rt.db, rt.log.Component("ops"))

	sched := jobs.Schedule{
		Engine:       rt.svc,
		ReminderHour: rt.cfg.ReminderHour,
		Log:          rt.log.Component("jobs"),
	}
	if rt.cfg.BotToken != "" {
		sender, err := notify.NewTelegramSender(rt.cfg.BotToken)
		if err != nil {
			return err
		}
		sched.Relay = notify.NewRelay(rt.svc, sender, rt.log.Component("relay"))
	} else {
		log.Info("BOT_TOKEN empty, notification relay disabled")
	}
	sched.Register(jobs.New(ctx, rt.log.Component("runner")), rt.cfg.JobInterval)

	log.Info("kpi started",
		zap.String("tz", rt.cfg.Location.String()),
		zap.String("missing_weeks", string(rt.cfg.MissingWeeks)),
		zap.Duration("job_interval", rt.cfg.JobInterval))
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
