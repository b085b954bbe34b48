// Package main benchmarks the cruxreport CLI against the live CrUX API.
// It times the fetch and summary commands over one URLs file without a
// response cache, then with the SQLite cache (first run cold, the rest warm),
// and writes the averages to a CSV file for documentation.
//
// Prerequisites:
// - cruxreport binary installed and available in PATH
// - CRUX_API_URL and CRUX_API_KEY exported
//
// Usage: go run benchmark/main.go [urls-file]
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// BenchmarkResult holds the no-cache average, cold run and warm average of one command.
type BenchmarkResult struct {
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	URLsFile    string
	Timeout     time.Duration
	BatchSize   int
	NoCacheRuns int
	CacheRuns   int
	Commands    []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [urls-file]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		URLsFile:    os.Args[1],
		Timeout:     5 * time.Minute,
		BatchSize:   5,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Commands:    []string{"fetch", "summary"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	var results []BenchmarkResult
	for _, command := range config.Commands {
		clearCache()
		results = append(results, runBenchmarkSuite(config, command))
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Benchmark complete\n")
	for _, r := range results {
		fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", r.Command, r.NoCacheTime, r.ColdTime, r.WarmTime)
	}
}

// checkPrerequisites verifies the binary, the credentials and the URLs file.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("cruxreport"); err != nil {
		return errors.New("cruxreport binary not found in PATH")
	}
	if os.Getenv("CRUX_API_URL") == "" || os.Getenv("CRUX_API_KEY") == "" {
		return errors.New("CRUX_API_URL and CRUX_API_KEY must be set")
	}
	if _, err := os.Stat(config.URLsFile); err != nil {
		return fmt.Errorf("urls file: %w", err)
	}
	return nil
}

// clearCache empties the SQLite response cache so every suite starts cold.
func clearCache() {
	cmd := exec.Command("cruxreport", "cache", "clear", "--cache-backend", "sqlite")
	if output, err := cmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}
}

// runBenchmarkSuite runs the no-cache and cache phases for a command.
func runBenchmarkSuite(config BenchmarkConfig, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, config.URLsFile)

	noCache := runBenchmark(config, command, "none", config.NoCacheRuns)
	cached := runBenchmark(config, command, "sqlite", config.CacheRuns)

	result := BenchmarkResult{
		Command:     command,
		NoCacheTime: average(noCache),
		ColdTime:    "TIMEOUT",
		WarmTime:    "TIMEOUT",
	}
	if len(cached) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", cached[0])
		result.WarmTime = average(cached[1:])
	}
	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", result.NoCacheTime, result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark executes a command numRuns times and returns the durations of the successful runs.
func runBenchmark(config BenchmarkConfig, command, cacheBackend string, numRuns int) []float64 {
	args := []string{
		command,
		"--urls-file", config.URLsFile,
		"--cache-backend", cacheBackend,
		"--batch-size", fmt.Sprint(config.BatchSize),
		"--output", "json",
		"--log-level", "error",
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "cruxreport", args...).Output()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil && json.Valid(output) {
			times = append(times, elapsed)
		}
	}
	return times
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	filename := fmt.Sprintf("/tmp/cruxreport_benchmark_%s.csv", time.Now().Format("20060102_150405"))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Command, r.NoCacheTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}
