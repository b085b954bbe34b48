package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// MetricDefinition describes one supported CrUX metric.
type MetricDefinition struct {
	Name             schema.Metric `json:"name"`
	Abbreviation     string        `json:"abbreviation"`
	DisplayName      string        `json:"display_name"`
	Good             float64       `json:"good"`
	NeedsImprovement float64       `json:"needs_improvement"`
	Unit             string        `json:"unit,omitempty"`
}

// MetricDefinitions returns the supported metrics with their rating thresholds.
func MetricDefinitions() []MetricDefinition {
	defs := make([]MetricDefinition, 0, len(schema.AllMetrics))
	for _, m := range schema.AllMetrics {
		th, _ := schema.GetThreshold(m)
		defs = append(defs, MetricDefinition{
			Name:             m,
			Abbreviation:     m.Abbreviation(),
			DisplayName:      m.DisplayName(),
			Good:             th.Good,
			NeedsImprovement: th.NeedsImprovement,
			Unit:             th.Unit,
		})
	}
	return defs
}

// PrintMetrics displays the metric vocabulary and the p75 thresholds used for ratings.
// This is a static display that does not require any CrUX lookup.
func PrintMetrics(cfg *contract.Config) error {
	defs := MetricDefinitions()

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, defs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricsCSV(w, defs)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeMetricsTable(w, defs)
		}, "Wrote table")
	}
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeMetricsTable writes the metric definitions as a table.
func writeMetricsTable(w io.Writer, defs []MetricDefinition) error {
	if _, err := fmt.Fprintln(w, "📊 CrUX Metrics"); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Name", "Good (<=)", "Needs Improvement (<=)", "Unit"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, d := range defs {
		unit := d.Unit
		if unit == "" {
			unit = "-"
		}
		data = append(data, []string{
			d.Abbreviation,
			d.DisplayName,
			formatThreshold(d.Good),
			formatThreshold(d.NeedsImprovement),
			unit,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "Ratings compare the p75 value against these thresholds. Anything above is Poor.")
	return err
}

// writeMetricsCSV writes the metric definitions in CSV format.
func writeMetricsCSV(w io.Writer, defs []MetricDefinition) error {
	header := []string{"metric", "abbreviation", "display_name", "good", "needs_improvement", "unit"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range defs {
			rec := []string{
				string(d.Name),
				d.Abbreviation,
				d.DisplayName,
				formatThreshold(d.Good),
				formatThreshold(d.NeedsImprovement),
				d.Unit,
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
}
