package cmd

import (
	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/spf13/cobra"
)

// fetchCmd looks up the CrUX record of every URL.
var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Fetch the CrUX record of each URL",
	Long: `Fetch Chrome UX Report field data for each URL in rate-limited batches.

URLs come from the positional arguments and/or --urls-file. Each URL is
retried up to --max-attempts times. A URL that still fails is reported with
its failure reason (timeout, network, status, ...) instead of
aborting the whole run.

Successful responses are cached (see 'cruxreport cache') for --cache-ttl.

Examples:
  # Look up two pages on phones
  cruxreport fetch https://example.com https://example.org --form-factor Phone

  # Only LCP and CLS, as JSON
  cruxreport fetch -u urls.txt -m largest_contentful_paint,cumulative_layout_shift --output json`,
	Args:    cobra.ArbitraryArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		ctx, stop := signalContext()
		err := core.ExecuteFetch(ctx, cfg, cacheManager)
		stop()
		if err != nil {
			contract.LogFatal("Cannot fetch CrUX records", err)
		}
	},
}
