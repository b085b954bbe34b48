package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/iocache"
	"github.com/huangsam/cruxreport/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// signalContext derives a context from rootCtx that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
}

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "cruxreport",
	Short:              "Fetch and summarize Chrome UX Report field data for a batch of URLs.",
	Long:               `cruxreport queries the CrUX API in rate-limited batches and turns the records into per-URL results or an averaged performance summary.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// useConfigFile points viper at --config or the default .cruxreport.yaml search paths.
func useConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".cruxreport") // Name of config file (without extension)
	viper.SetConfigType("yaml")        // We'll use YAML format
	viper.AddConfigPath(".")           // Look in the current directory
	viper.AddConfigPath("$HOME")       // Look in the home directory
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	useConfigFile()

	// CRUX_API_URL, CRUX_API_KEY, CRUX_CACHE_DB_CONNECT, ...
	viper.SetEnvPrefix("CRUX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Set defaults in Viper
	viper.SetDefault("batch-size", contract.DefaultBatchSize)
	viper.SetDefault("batch-delay", contract.DefaultBatchDelay.String())
	viper.SetDefault("max-attempts", contract.DefaultMaxAttempts)
	viper.SetDefault("retry-delay", contract.DefaultRetryDelay.String())
	viper.SetDefault("retry-policy", schema.LinearRetry)
	viper.SetDefault("attempt-timeout", contract.DefaultAttemptTimeout.String())
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("run-backend", "")
	viper.SetDefault("run-db-connect", "")
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", contract.LogFormatText)
	viper.SetDefault("addr", contract.DefaultAddr)
	viper.SetDefault("environment", contract.DefaultEnvironment)
	viper.SetDefault("max-urls", contract.DefaultMaxURLs)
	viper.SetDefault("rate-limit", contract.DefaultRateLimit)
	viper.SetDefault("rate-window", contract.DefaultRateWindow.String())
	viper.SetDefault("max-request-bytes", contract.DefaultMaxRequestBytes)
	viper.SetDefault("allowed-origins", contract.DefaultAllowedOrigins)
}

// readConfigFile loads the config file if one is present.
func readConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := readConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.URLArgs = args

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	contract.InitLogger(contract.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(iocache.StoreConfig{
		CacheBackend: cfg.CacheBackend,
		CacheConnect: cfg.CacheDBConnect,
		CacheTTL:     cfg.CacheTTL,
		RunBackend:   cfg.RunBackend,
		RunConnect:   cfg.RunDBConnect,
	}); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	cacheManager = iocache.Manager

	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// storeBackend reads a backend key from viper, treating an empty value as none.
func storeBackend(key string) schema.DatabaseBackend {
	raw := strings.ToLower(strings.TrimSpace(viper.GetString(key)))
	if raw == "" {
		return schema.NoneBackend
	}
	return schema.DatabaseBackend(raw)
}

// sqlitePath returns the SQLite file named by connStr, or def when it is empty.
func sqlitePath(connStr, def string) string {
	if connStr != "" {
		return connStr
	}
	return def
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
