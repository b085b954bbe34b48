package cmd

import (
	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/spf13/cobra"
)

// summaryCmd averages the metrics of every URL into one report.
var summaryCmd = &cobra.Command{
	Use:   "summary [url...]",
	Short: "Average CrUX metrics across URLs with performance insights",
	Long: `Fetch every URL, then average the good / needs improvement / poor
densities and the p75 of each metric across all of them.

Each averaged p75 is rated against the Web Vitals thresholds and
reported with an insight. The summary is refused when any URL has no
usable record, and the offending URLs are listed.

Examples:
  # Summarize a list of landing pages
  cruxreport summary -u landing-pages.txt

  # Export the summary rows to Parquet
  cruxreport summary -u urls.txt --output parquet --output-file summary.parquet`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signalContext()
		err := core.ExecuteSummary(ctx, cfg, cacheManager)
		stop()
		if err != nil {
			contract.LogFatal("Cannot summarize CrUX metrics", err)
		}
	},
}
