package cmd

import (
	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CrUX HTTP API",
	Long: `Serve the fetch pipeline over HTTP.

Routes:
  POST /api/crux          per-URL CrUX results
  POST /api/crux/summary  averaged metrics with insights
  GET  /api/metrics       supported metrics and thresholds
  GET  /health            liveness probe

Requests are rate limited per client (--rate-limit per --rate-window) and
bodies are capped at --max-request-bytes. The server shuts down gracefully
on SIGINT or SIGTERM.

Examples:
  # Listen on the default port 5000
  CRUX_API_URL=... CRUX_API_KEY=... cruxreport serve

  # Production settings with JSON logs
  cruxreport serve --addr :8080 --environment production --log-format json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()

		logger := contract.GetLogger()
		if !cfg.HasAPICredentials() {
			logger.Warn("CrUX API url or key is not configured; lookups will fail")
		}
		runner := core.NewRunner(cfg, cacheManager, core.WithLogger(logger))
		return server.NewAPIServer(cfg, runner, logger).Run(ctx)
	},
}
