package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/config"
	"github.com/jonathan/content-curator/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that triggers curation runs and exposes run history,
ledger lookups, health and Prometheus metrics.

Run triggers require a bearer token when CURATOR_API_TOKEN is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
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
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		a.logger.Warn("CURATOR_API_TOKEN is not set; run triggers are unauthenticated")
	}

	port := a.cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	deps := server.Deps{
		Runner:  cur.orchestrator,
		Ledger:  cur.ledger,
		Metrics: a.metrics,
		Logger:  a.logger,
	}
	if cur.history != nil {
		deps.History = cur.history
	}
	srv, err := server.New(server.Config{
		Port:      port,
		RateLimit: a.cfg.Server.RateLimit,
		JWT:       jwtCfg,
	}, deps)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}
