package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ahsandevhub/wetrain-kpi/internal/db"
	"github.com/ahsandevhub/wetrain-kpi/internal/export"
	"github.com/ahsandevhub/wetrain-kpi/internal/kpi"
)

func init() {
	rootCmd.AddCommand(migrateCmd, ensureWeekCmd, lockWeeksCmd, unlockWeekCmd,
		lockMonthCmd, unlockMonthCmd, rollupCmd, exportCmd)

	ensureWeekCmd.Flags().String("week", "", "Friday key YYYY-MM-DD (default: current week)")
	unlockWeekCmd.Flags().String("week", "", "Friday key YYYY-MM-DD")
	for _, c := range []*cobra.Command{unlockWeekCmd, lockMonthCmd, unlockMonthCmd, rollupCmd} {
		c.Flags().Int64("actor", 0, "Person id of the operator")
	}
	for _, c := range []*cobra.Command{lockMonthCmd, unlockMonthCmd, rollupCmd, exportCmd} {
		c.Flags().String("month", "", "Month key YYYY-MM (default: previous month)")
	}
	rollupCmd.Flags().Int64("subject", 0, "Only this subject (default: every subject with an active assignment)")
	exportCmd.Flags().StringP("out", "o", "", "Output path (default: KPI - <month>.xlsx)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := db.Migrate(rt.db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var ensureWeekCmd = &cobra.Command{
	Use:   "ensure-week",
	Short: "Create the week row at OPEN if it does not exist",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		key, _ := cmd.Flags().GetString("week")
		if key == "" {
			key = rt.svc.Clock().CurrentWeek().Format(kpi.WeekKeyLayout)
		}
		w, err := rt.svc.EnsureWeek(cmd.Context(), key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "week %s %s\n", w.Key(), w.Status)
		return nil
	},
}

var lockWeeksCmd = &cobra.Command{
	Use:   "lock-weeks",
	Short: "Persist LOCKED for weeks past their Friday cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.svc.LockElapsedWeeks(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d week(s) locked\n", n)
		return nil
	},
}

var unlockWeekCmd = &cobra.Command{
	Use:   "unlock-week",
	Short: "Reopen a week after its cutoff (SUPER_ADMIN)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rt, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		actor, err := rt.operator(cmd)
		if err != nil {
			return err
		}
		key, _ := cmd.Flags().GetString("week")
		w, err := rt.svc.UnlockWeek(cmd.Context(), actor, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "week %s %s\n", w.Key(), w.Status)
		return nil
	},
}

func monthFlag(cmd *cobra.Command, rt *runtime) (string, error) {
	key, _ := cmd.Flags().GetString("month")
	if key != "" {
		return key, nil
	}
	return rt.svc.Clock().PreviousMonthKey(rt.svc.Clock().CurrentMonthKey())
}

var lockMonthCmd = &cobra.Command{
	Use:   "lock-month",
	Short: "Freeze a month's results",
	RunE:  func(cmd *cobra.Command, _ []string) error { return runMonthStatus(cmd, true) },
}

var unlockMonthCmd = &cobra.Command{
	Use:   "unlock-month",
	Short: "Reopen a month for recomputation",
	RunE:  func(cmd *cobra.Command, _ []string) error { return runMonthStatus(cmd, false) },
}

func runMonthStatus(cmd *cobra.Command, lock bool) error {
	rt, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	actor, err := rt.operator(cmd)
	if err != nil {
		return err
	}
	key, err := monthFlag(cmd, rt)
	if err != nil {
		return err
	}
	if _, err := rt.svc.EnsureMonth(cmd.Context(), key); err != nil {
		return err
	}
	set := rt.svc.UnlockMonth
	if lock {
		set = rt.svc.LockMonth
	}
	m, err := set(cmd.Context(), actor, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "month %s %s\n", m.MonthKey, m.Status)
	return nil
}

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Compute monthly results from weekly results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		actor, err := rt.operator(cmd)
		if err != nil {
			return err
		}
		ctx = cmd.Context()
		key, err := monthFlag(cmd, rt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if subject, _ := cmd.Flags().GetInt64("subject"); subject != 0 {
			if _, err := rt.svc.EnsureMonth(ctx, key); err != nil {
				return err
			}
			r, err := rt.svc.ComputeMonthlyResult(ctx, actor, subject, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "subject %d: %.2f %s fine=%d\n", r.SubjectID, r.MonthlyScore, r.Tier, r.FinalFine)
			return nil
		}

		results, err := rt.svc.ComputeMonth(ctx, actor, key)
		for _, r := range results {
			fmt.Fprintf(out, "subject %d: %.2f %s fine=%d\n", r.SubjectID, r.MonthlyScore, r.Tier, r.FinalFine)
		}
		return err
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the month's results and fund ledger to an xlsx workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		key, err := monthFlag(cmd, rt)
		if err != nil {
			return err
		}
		results, err := rt.svc.ListMonthlyResults(ctx, key)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return errors.New("no monthly results for " + key)
		}
		fund, err := rt.svc.ListFundEntries(ctx, key)
		if err != nil {
			return err
		}
		names := make(map[int64]string, len(results))
		for _, r := range results {
			p, err := rt.svc.GetPerson(ctx, r.SubjectID)
			if err != nil {
				return err
			}
			names[p.ID] = p.Name
		}

		f, err := export.MonthWorkbook(key, results, names, fund)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		path, _ := cmd.Flags().GetString("out")
		if path == "" {
			path = export.MonthFilename(key)
		}
		if err := f.SaveAs(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d subjects, %d fund entries)\n", path, len(results), len(fund))
		return nil
	},
}
