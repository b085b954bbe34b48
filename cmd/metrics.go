package cmd

import (
	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/spf13/cobra"
)

// metricsCmd displays the supported metrics and their rating thresholds.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the supported CrUX metrics and their rating thresholds",
	Long: `Show every metric cruxreport can request, with its abbreviation,
display name and the p75 thresholds used to rate it.

A p75 at or below the first threshold is good, at or below the second
needs improvement, and above it is poor.

No CrUX lookup is performed - this is purely informational.

Examples:
  # Show the thresholds table
  cruxreport metrics

  # Machine-readable definitions
  cruxreport metrics --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMetrics(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display metrics", err)
		}
	},
}
