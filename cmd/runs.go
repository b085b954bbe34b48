package cmd

import (
	"fmt"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/iocache"
	"github.com/huangsam/cruxreport/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadRunBackend reads and validates the run tracking backend settings.
func loadRunBackend() error {
	if err := readConfigFile(); err != nil {
		return err
	}

	backend := storeBackend("run-backend")
	connStr := viper.GetString("run-db-connect")
	if _, ok := schema.ValidRunBackends[backend]; !ok {
		return fmt.Errorf("invalid run backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsSetup loads minimal configuration and opens the run store.
func runsSetup(_ *cobra.Command, _ []string) error {
	if err := loadRunBackend(); err != nil {
		return err
	}

	// No response cache for run commands
	if err := iocache.InitStores(iocache.StoreConfig{
		RunBackend: cfg.RunBackend,
		RunConnect: cfg.RunDBConnect,
	}); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	return nil
}

// runsMigrateSetup loads the run backend without opening the store,
// so migrations can run against a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	return loadRunBackend()
}

// runsCmd focused on run log management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the fetch run log and exports",
	Long: `Manage the log of fetch runs kept when --run-backend is set.

Each run stores:
- Start and end time, duration and the request parameters
- URL, success and failure counts
- The outcome of every URL (status, attempts, failure reason)

Metric values are not stored; use 'summary --output parquet' for those.

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs and outcomes to Parquet
  clear   - Remove all tracking data
  migrate - Run database schema migrations

Examples:
  # Track runs in the default SQLite file
  cruxreport fetch -u urls.txt --run-backend sqlite

  # Export for analysis in pandas/DuckDB
  cruxreport runs export --run-backend sqlite --output-file crux`,
}

// runsClearCmd clears the run log.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored runs and URL outcomes",
	Long: `Delete all stored runs and URL outcomes.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  cruxreport runs export --run-backend sqlite --output-file backup
  cruxreport runs clear --run-backend sqlite`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearRuns(cfg.RunBackend, sqlitePath(cfg.RunDBConnect, contract.GetRunDBFilePath()), cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear run data", err)
		}
		fmt.Println("Run data cleared successfully.")
	},
}

// runsStatusCmd shows run log status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show the backend, number of stored runs, newest and oldest run
timestamps, the number of URL outcomes and the table sizes.`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetRunStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(status)
	},
}

// runsExportCmd exports the run log to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run log to Parquet for BI tools and analytics",
	Long: `Export stored runs and URL outcomes to two Parquet files:

  <output-file>.runs.parquet
  <output-file>.url_outcomes.parquet

Requires: --output-file parameter

Examples:
  cruxreport runs export --run-backend sqlite --output-file crux
  duckdb -c "SELECT reason, count(*) FROM read_parquet('crux.url_outcomes.parquet') GROUP BY 1"`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteRunExport(iocache.Manager.GetRunStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run data", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run tracking store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  cruxreport runs migrate --run-backend postgresql --run-db-connect "host=... dbname=..."

  # Rollback to the initial state
  cruxreport runs migrate --run-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cfg.RunBackend, cfg.RunDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
