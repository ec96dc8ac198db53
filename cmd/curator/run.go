package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/observability"
	"github.com/jonathan/content-curator/internal/pipeline"
	"github.com/jonathan/content-curator/internal/types"
)

var (
	runSources   []string
	runCriterion string
	runJSON      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one curation workflow",
	Long: `Scrape every configured source, drop articles already in the ledger, select the
best match for the criterion, and write social posts and an image for it.

--source and --criterion override the config file for this run only.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runSources, "source", "s", nil, "Source URL (repeatable, comma-separated)")
	runCmd.Flags().StringVarP(&runCriterion, "criterion", "c", "", "Selection criterion")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON")
	rootCmd.AddCommand(runCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runOnce(_ *cobra.Command, _ []string) error {
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

	res := cur.orchestrator.Run(ctx, pipeline.RunOptions{
		Sources:   splitList(runSources),
		Criterion: runCriterion,
	})
	return reportResult(os.Stdout, res, runJSON)
}

// reportResult prints res and turns an error status into a command error.
func reportResult(w io.Writer, res *types.RunResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		observability.NewPrinter(w).PrintRunResult(res)
	}

	if res.Status == types.RunStatusError {
		return fmt.Errorf("run %s ended in state %s: %s", res.RunID, res.State, res.Message)
	}
	return nil
}
