// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
	"golang.org/x/term"
)

// Bounds for the URL column of result tables.
const (
	minURLWidth = 20
	maxURLWidth = 80
)

// terminalWidth returns the width override from config, the detected terminal width,
// or a conservative default.
func terminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// getMaxTableURLWidth calculates the maximum width for URLs in the results table
// based on terminal width and the fixed columns.
func getMaxTableURLWidth(cfg *contract.Config) int {
	// Rank + Status + Attempts + Metrics with borders/padding
	baseWidth := 60
	available := terminalWidth(cfg) - baseWidth
	return min(max(available, minURLWidth), maxURLWidth)
}

// ratingLabel renders a rating for table output, colored unless disabled.
func ratingLabel(r schema.Rating, cfg *contract.Config) string {
	if !cfg.UseColors {
		return contract.GetPlainRating(r)
	}
	return contract.GetColorRating(r)
}

// formatP75 renders a p75 value with the metric's unit.
func formatP75(m schema.Metric, p75 float64, fmtFloat func(float64) string) string {
	th, ok := schema.GetThreshold(m)
	if !ok || th.Unit == "" {
		return fmtFloat(p75)
	}
	return fmtFloat(p75) + " " + th.Unit
}
