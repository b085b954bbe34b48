package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/cruxreport/core/insight"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/parquet"
	"github.com/huangsam/cruxreport/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSummary outputs the aggregated summary and its insights in the configured format.
func PrintSummary(report schema.SummaryReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := createFormatter(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummaryCSV(w, report, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return fmt.Errorf("parquet output requires --output-file")
		}
		if err := parquet.WriteSummaryParquet(parquet.ConvertSummaryReport(report), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummaryTable(w, report, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return nil
}

// percent renders a density fraction as a percentage.
func percent(v float64, fmtFloat func(float64) string) string {
	return fmtFloat(v*100) + "%"
}

// writeSummaryTable writes the summary rows followed by the insights.
func writeSummaryTable(w io.Writer, report schema.SummaryReport, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Good", "Needs Improvement", "Poor", "p75", "Rating"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, row := range report.Rows {
		rating, _ := insight.Rate(row.Metric, row.P75)
		data = append(data, []string{
			fmt.Sprintf("%s (%s)", row.Metric.DisplayName(), row.Metric.Abbreviation()),
			percent(row.Good, fmtFloat),
			percent(row.NeedsImprovement, fmtFloat),
			percent(row.Poor, fmtFloat),
			formatP75(row.Metric, row.P75, fmtFloat),
			ratingLabel(rating, cfg),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(report.Insights) > 0 {
		if _, err := fmt.Fprintln(w, "Insights:"); err != nil {
			return err
		}
		for _, in := range report.Insights {
			if _, err := fmt.Fprintf(w, "  - [%s] %s\n", ratingLabel(in.Rating, cfg), in.Message); err != nil {
				return err
			}
		}
	}

	formFactor := string(report.FormFactor)
	if formFactor == "" {
		formFactor = "all"
	}
	if _, err := fmt.Fprintf(w, "Summarized %d URLs (form factor: %s) in %v. Cache backend: %s\n", report.URLCount, formFactor, duration, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeSummaryCSV writes one row per metric with its rating.
func writeSummaryCSV(w io.Writer, report schema.SummaryReport, fmtFloat func(float64) string) error {
	header := []string{"metric", "abbreviation", "good", "needs_improvement", "poor", "p75", "rating"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range report.Rows {
			rating, _ := insight.Rate(row.Metric, row.P75)
			rec := []string{
				string(row.Metric),
				row.Metric.Abbreviation(),
				fmtFloat(row.Good),
				fmtFloat(row.NeedsImprovement),
				fmtFloat(row.Poor),
				fmtFloat(row.P75),
				contract.GetPlainRating(rating),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
