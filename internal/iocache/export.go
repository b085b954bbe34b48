package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/internal/parquet"
)

// ExecuteRunExport exports the run log of store to two Parquet files prefixed by outputFile.
func ExecuteRunExport(store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is not configured. Set --run-backend")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}

	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total URL outcomes: %d\n", status.TableSizes[urlOutcomesTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}

	outcomes, err := store.GetAllURLOutcomes()
	if err != nil {
		return fmt.Errorf("failed to retrieve url outcomes: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(runs), runsFile)

	outcomesFile := outputFile + ".url_outcomes.parquet"
	if err := parquet.WriteURLOutcomesParquet(parquet.ConvertURLOutcomeRecords(outcomes), outcomesFile); err != nil {
		return fmt.Errorf("failed to write url outcomes: %w", err)
	}
	fmt.Printf("Exported %d url outcomes to: %s\n", len(outcomes), outcomesFile)

	return nil
}
