// Package cmd defines the command-line interface for cruxreport.
package cmd

import (
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.String("api-url", "", "CrUX records:queryRecord endpoint (env CRUX_API_URL)")
	pf.String("api-key", "", "CrUX API key (prefer env CRUX_API_KEY)")
	pf.StringP("metrics", "m", "", "Comma-separated metric names (default: all supported metrics)")
	pf.String("form-factor", "", "Device form factor: Phone or Desktop or Tablet (default: all)")
	pf.StringP("urls-file", "u", "", "File with one URL per line; '#' starts a comment")
	pf.Int("batch-size", contract.DefaultBatchSize, "Number of URLs fetched concurrently per batch")
	pf.String("batch-delay", contract.DefaultBatchDelay.String(), "Pause between batches")
	pf.Int("max-attempts", contract.DefaultMaxAttempts, "Maximum fetch attempts per URL")
	pf.String("retry-delay", contract.DefaultRetryDelay.String(), "Base delay between attempts")
	pf.String("retry-policy", string(schema.LinearRetry), "Retry delay growth: linear or exponential")
	pf.String("attempt-timeout", contract.DefaultAttemptTimeout.String(), "Timeout of a single fetch attempt")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.String("cache-backend", string(schema.SQLiteBackend), "Response cache backend: sqlite or mysql or postgresql or redis or none")
	pf.String("cache-db-connect", "", "Connection string for the response cache (e.g., user:pass@tcp(host:port)/dbname)")
	pf.String("cache-ttl", contract.DefaultCacheTTL.String(), "Maximum age of a cached CrUX response")
	pf.String("run-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	pf.String("run-db-connect", "", "Connection string for run tracking (must differ from cache-db-connect)")
	pf.String("log-level", "info", "Log level: debug or info or warn or error")
	pf.String("log-format", contract.LogFormatText, "Log format: text or json")
	pf.String("config", "", "Path to config file")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("addr", contract.DefaultAddr, "Listen address of the HTTP API")
	serveCmd.Flags().String("environment", contract.DefaultEnvironment, "Environment name reported by /health")
	serveCmd.Flags().Int("max-urls", contract.DefaultMaxURLs, "Maximum URLs accepted per request")
	serveCmd.Flags().Int("rate-limit", contract.DefaultRateLimit, "Requests allowed per client per rate window")
	serveCmd.Flags().String("rate-window", contract.DefaultRateWindow.String(), "Rate limit window")
	serveCmd.Flags().Int64("max-request-bytes", contract.DefaultMaxRequestBytes, "Maximum request body size in bytes")
	serveCmd.Flags().String("allowed-origins", contract.DefaultAllowedOrigins, "Comma-separated CORS origins")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}
