package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/cruxreport/schema"
)

// Rating label constants.
const (
	GoodValue             = "Good"              // Good value
	NeedsImprovementValue = "Needs Improvement" // Needs improvement value
	PoorValue             = "Poor"              // Poor value
	UnknownValue          = "Unknown"           // Unknown value
)

// Color variables for console output.
var (
	GoodColor             = color.New(color.FgGreen)           // GoodColor marks values within the good threshold.
	NeedsImprovementColor = color.New(color.FgYellow)          // NeedsImprovementColor is standard caution, not bold.
	PoorColor             = color.New(color.FgRed, color.Bold) // PoorColor represents standard danger.
)

// GetPlainRating returns a plain text label for a rating. This is the core logic used
// for CSV, JSON, and table printing.
func GetPlainRating(r schema.Rating) string {
	switch r {
	case schema.GoodRating:
		return GoodValue
	case schema.NeedsImprovementRating:
		return NeedsImprovementValue
	case schema.PoorRating:
		return PoorValue
	default:
		return UnknownValue
	}
}

// GetColorRating returns a colored text label for console output (table).
func GetColorRating(r schema.Rating) string {
	text := GetPlainRating(r)

	switch r {
	case schema.GoodRating:
		return GoodColor.Sprint(text)
	case schema.NeedsImprovementRating:
		return NeedsImprovementColor.Sprint(text)
	case schema.PoorRating:
		return PoorColor.Sprint(text)
	default:
		return text
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It uses os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the response cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".cruxreport_cache.db"
	}
	return filepath.Join(homeDir, ".cruxreport_cache.db")
}

// GetRunDBFilePath returns the path to the SQLite DB file for the run log.
func GetRunDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".cruxreport_runs.db"
	}
	return filepath.Join(homeDir, ".cruxreport_runs.db")
}

// TruncateText truncates a string to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the "..." prefix and at least one character.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
