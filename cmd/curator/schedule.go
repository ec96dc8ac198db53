package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/observability"
	"github.com/jonathan/content-curator/internal/pipeline"
	"github.com/jonathan/content-curator/internal/scheduler"
)

var scheduleEvery time.Duration

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run curation now and then on a fixed interval",
	Long: `Run one workflow immediately and another every interval until interrupted.
A tick that arrives while a run is still going is skipped.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().DurationVar(&scheduleEvery, "every", 0, "Interval between runs (defaults to schedule.interval)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(_ *cobra.Command, _ []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cur, err := a.curation(ctx)
	if err != nil {
		return err
	}

	interval := a.cfg.Schedule.Interval
	if scheduleEvery > 0 {
		interval = scheduleEvery
	}
	printer := observability.NewPrinter(os.Stdout)

	job := func(ctx context.Context, trigger time.Time) {
		res := cur.orchestrator.Run(ctx, pipeline.RunOptions{})
		printer.PrintRunResult(res)
		a.logger.WithFields(logrus.Fields{
			"run_id":  res.RunID,
			"state":   res.State,
			"trigger": trigger.Format(time.RFC3339),
		}).Info("Scheduled run finished")
	}

	a.logger.WithField("interval", interval.String()).Info("Scheduler started")
	return scheduler.New(interval, job, a.logger).Run(ctx)
}
