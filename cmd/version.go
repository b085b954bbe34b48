package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// buildInfo renders the version block printed by the version command.
func buildInfo() string {
	return fmt.Sprintf("cruxreport CLI\n  Version:  %s\n  Commit:   %s\n  Built:    %s\n  Runtime:  %s (%s/%s)\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// versionCmd shows the verbose version for diagnostic purposes.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cruxreport.",
	Long: `Display the release version, commit, build time and Go runtime.

Include this output when reporting a bug.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Print(buildInfo())
	},
}
