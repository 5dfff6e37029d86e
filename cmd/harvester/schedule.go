package main

import (
	"github.com/spf13/cobra"
	"github.com/ternarybob/harvester/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run every configured chain on a cron schedule",
	RunE:  runSchedule,
}

var (
	scheduleExpr string
	scheduleNow  bool
)

func init() {
	scheduleCmd.Flags().StringVar(&scheduleExpr, "cron", "", "Cron expression (overrides scheduler.schedule)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "Run once immediately before waiting for the schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	application, err := app.New(ctx, config, logger, app.WithCheckpoints())
	if err != nil {
		return err
	}
	defer application.Close()

	schedule := config.Scheduler.Schedule
	if scheduleExpr != "" {
		schedule = scheduleExpr
	}

	scheduler, err := app.NewScheduler(config.Scheduler, application.Runner, logger)
	if err != nil {
		return err
	}

	if scheduleNow {
		scheduler.RunOnce(ctx)
	}

	if err := scheduler.Start(ctx, schedule); err != nil {
		return err
	}
	logger.Info().Msg("Scheduler ready - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")
	scheduler.Stop()
	return nil
}
