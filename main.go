// main is the entry point of the cruxreport CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/cruxreport/cmd"
	"github.com/huangsam/cruxreport/internal/iocache"
)

func main() {
	err := cmd.Execute()
	iocache.CloseCaching()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
