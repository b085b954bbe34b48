// Package parquet provides data structures and functions for exporting cruxreport
// summaries and run logs to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/cruxreport/core/insight"
	"github.com/huangsam/cruxreport/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single fetch run with metadata.
// This struct maps to the crux_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalURLs    int32 `parquet:"total_urls,snappy"`
	SuccessCount int32 `parquet:"success_count,snappy"`
	FailureCount int32 `parquet:"failure_count,snappy"`

	// ConfigParams contains the JSON-encoded request parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// URLOutcome is the terminal state of one URL in a run.
// This struct maps to the crux_url_outcomes database table.
type URLOutcome struct {
	RunID        int64   `parquet:"run_id,snappy"`
	URL          string  `parquet:"url,snappy"`
	Status       string  `parquet:"status,snappy,dict"`
	Attempts     int32   `parquet:"attempts,snappy"`
	ErrorReason  *string `parquet:"error_reason,optional,snappy"`
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// SummaryRow is one aggregated metric of a summary run, with its rating.
type SummaryRow struct {
	Metric           string  `parquet:"metric,snappy,dict"`
	Abbreviation     string  `parquet:"abbreviation,snappy,dict"`
	Good             float64 `parquet:"good,snappy"`
	NeedsImprovement float64 `parquet:"needs_improvement,snappy"`
	Poor             float64 `parquet:"poor,snappy"`
	P75              float64 `parquet:"p75,snappy"`
	Rating           string  `parquet:"rating,snappy,dict"`
	URLCount         int32   `parquet:"url_count,snappy"`
	FormFactor       string  `parquet:"form_factor,snappy,dict"`
}

// writeParquet writes data to outputPath with a writer inferred from T's struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteURLOutcomesParquet writes URL outcomes to a Parquet file.
func WriteURLOutcomesParquet(data []URLOutcome, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSummaryParquet writes summary rows to a Parquet file.
func WriteSummaryParquet(data []SummaryRow, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalURLs:     record.TotalURLs,
			SuccessCount:  record.SuccessCount,
			FailureCount:  record.FailureCount,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertURLOutcomeRecords converts schema.URLOutcomeRecord to URLOutcome for Parquet export.
func ConvertURLOutcomeRecords(records []schema.URLOutcomeRecord) []URLOutcome {
	result := make([]URLOutcome, len(records))
	for i, record := range records {
		result[i] = URLOutcome{
			RunID:        record.RunID,
			URL:          record.URL,
			Status:       record.Status,
			Attempts:     record.Attempts,
			ErrorReason:  record.ErrorReason,
			ErrorMessage: record.ErrorMessage,
		}
	}
	return result
}

// ConvertSummaryReport flattens a summary report into rated Parquet rows.
func ConvertSummaryReport(report schema.SummaryReport) []SummaryRow {
	result := make([]SummaryRow, len(report.Rows))
	for i, row := range report.Rows {
		rating, _ := insight.Rate(row.Metric, row.P75)
		result[i] = SummaryRow{
			Metric:           string(row.Metric),
			Abbreviation:     row.Metric.Abbreviation(),
			Good:             row.Good,
			NeedsImprovement: row.NeedsImprovement,
			Poor:             row.Poor,
			P75:              row.P75,
			Rating:           string(rating),
			URLCount:         int32(report.URLCount),
			FormFactor:       string(report.FormFactor),
		}
	}
	return result
}
