// Package main is the curator command line: one-shot and scheduled curation
// runs, the HTTP trigger server, ledger maintenance and inbox triage.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/config"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Content curator",
	Long: `Curator scrapes configured sources for recent articles, skips anything already
processed, picks the best match for a criterion, and writes social posts plus an
illustration for it. It can run once, on a schedule, or behind an HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (defaults are used when omitted)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Human-readable logs instead of JSON")
}

func main() {
	config.LoadDotEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
