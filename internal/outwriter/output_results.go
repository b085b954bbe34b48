package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Result status labels.
const (
	statusOK     = "ok"
	statusFailed = "failed"
)

// PrintResults outputs per-URL fetch results, dispatching based on the output format configured.
func PrintResults(results []schema.URLResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, results)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultsCSV(w, results)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported by the summary command")
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultsTable(w, results, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// sortedMetricNames returns the metric names of a record set in a stable order.
func sortedMetricNames(data schema.MetricSet) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// describeMetrics renders "LCP=2400, CLS=0.05" for a successful lookup.
func describeMetrics(data schema.MetricSet) string {
	if len(data) == 0 {
		return "no metrics returned"
	}
	var parts []string
	for _, name := range sortedMetricNames(data) {
		p75 := data[name].Percentiles.P75
		value := p75.String()
		if p75.IsEmpty() {
			value = "n/a"
		}
		parts = append(parts, fmt.Sprintf("%s=%s", schema.Metric(name).Abbreviation(), value))
	}
	return strings.Join(parts, ", ")
}

// writeResultsTable generates and writes the human-readable results table.
func writeResultsTable(w io.Writer, results []schema.URLResult, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "URL", "Status", "Attempts", "p75"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	urlWidth := getMaxTableURLWidth(cfg)
	succeeded := 0
	var data [][]string
	for i, r := range results {
		status, details := statusOK, describeMetrics(r.Data)
		if r.Failed() {
			status, details = statusFailed, r.Error
		} else {
			succeeded++
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(r.URL, urlWidth),
			status,
			strconv.Itoa(r.Attempts),
			contract.TruncateText(details, urlWidth),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Fetched %d URLs (%d succeeded, %d failed)\n", len(results), succeeded, len(results)-succeeded); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Fetch completed in %v with batch size %d. Cache backend: %s\n", duration, cfg.BatchSize, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeResultsCSV writes one row per URL and metric. Failed URLs get a single row.
func writeResultsCSV(w io.Writer, results []schema.URLResult) error {
	header := []string{"url", "status", "attempts", "metric", "good", "needs_improvement", "poor", "p75", "reason", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			attempts := strconv.Itoa(r.Attempts)
			if r.Failed() {
				if err := cw.Write([]string{r.URL, statusFailed, attempts, "", "", "", "", "", r.Reason, r.Error}); err != nil {
					return err
				}
				continue
			}
			for _, name := range sortedMetricNames(r.Data) {
				rec := r.Data[name]
				good, ni, poor := binDensities(rec)
				if err := cw.Write([]string{r.URL, statusOK, attempts, name, good, ni, poor, rec.Percentiles.P75.String(), "", ""}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// binDensities returns the three densities of a record, blank when the histogram is short.
func binDensities(rec schema.MetricRecord) (good, ni, poor string) {
	if len(rec.Histogram) < schema.MinHistogramBins {
		return "", "", ""
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(rec.Histogram[schema.BinGood].Density),
		f(rec.Histogram[schema.BinNeedsImprovement].Density),
		f(rec.Histogram[schema.BinPoor].Density)
}
