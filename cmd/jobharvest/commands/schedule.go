package commands

import (
	"fmt"
	"log/slog"
	"jobharvest/internal/components/chrono"
	"jobharvest/internal/components/telemetry"
	"jobharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var scheduleSpec string

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "A 5 field cron expression, defaults to the config's schedule.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron \"<expr>\"]",
	Short: "Runs the harvest on a cron schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(configPath)
		if err != nil {
			return err
		}
		spec := cfg.Schedule
		if scheduleSpec != "" {
			spec = scheduleSpec
		}

		clock, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}
		next, err := chrono.NextRun(spec, clock.Now())
		if err != nil {
			return fmt.Errorf("parse cron %q: %w", spec, err)
		}

		telemetry.InitSlog(verbose)
		ctx := serviceutil.SignalContext(cmd.Context())
		shutdown := setupTelemetry(ctx)
		defer shutdown()
		telemetry.InstrumentPerfStats(ctx)

		crons := chrono.NewStandardCron(telemetry.SlogAPI{}, clock.Location())
		err = crons.Cron(spec, func() {
			closeLog, err := setupLogging(cfg, clock)
			if err != nil {
				slog.Error("failed to open run log", "err", err)
				return
			}
			defer func() {
				telemetry.InitSlog(verbose)
				closeLog()
			}()

			pipeline, err := newPipeline(ctx, cfg, clock)
			if err != nil {
				slog.Error("failed to create pipeline", "err", err)
				return
			}
			res, err := pipeline.Run(ctx)
			if err != nil {
				slog.Error("scheduled harvest failed", "err", err)
			}
			printResult(cmd.OutOrStdout(), cfg, res)

			upcoming, err := chrono.NextRun(spec, clock.Now())
			if err == nil {
				slog.Info("next harvest", "at", upcoming)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %q: %w", spec, err)
		}

		slog.Info("waiting for the first harvest", "cron", spec, "at", next)
		crons.Run(ctx)
		return nil
	},
}
