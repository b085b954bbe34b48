package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []schema.URLResult {
	return []schema.URLResult{
		schema.NewSuccess("https://a.example", schema.MetricSet{
			string(schema.LargestContentfulPaint): {
				Histogram:   []schema.HistogramBin{{Density: 0.7}, {Density: 0.2}, {Density: 0.1}},
				Percentiles: schema.Percentiles{P75: schema.NewNumber(2400)},
			},
			string(schema.CumulativeLayoutShift): {
				Histogram:   []schema.HistogramBin{{Density: 0.8}, {Density: 0.15}, {Density: 0.05}},
				Percentiles: schema.Percentiles{P75: schema.NewNumberString("0.05")},
			},
		}, 1),
		schema.NewFailure("https://b.example", "crux api returned HTTP 404", "status", 3),
	}
}

func TestDescribeMetrics(t *testing.T) {
	assert.Equal(t, "CLS=0.05, LCP=2400", describeMetrics(sampleResults()[0].Data))
	assert.Equal(t, "no metrics returned", describeMetrics(schema.MetricSet{}))
	assert.Equal(t, "FCP=n/a", describeMetrics(schema.MetricSet{string(schema.FirstContentfulPaint): {}}))
}

func TestWriteResultsTable(t *testing.T) {
	var buf bytes.Buffer
	cfg := &contract.Config{Width: 160, BatchSize: 5, CacheBackend: schema.SQLiteBackend}
	require.NoError(t, writeResultsTable(&buf, sampleResults(), cfg, time.Second))

	out := buf.String()
	assert.Contains(t, out, "https://a.example")
	assert.Contains(t, out, "CLS=0.05, LCP=2400")
	assert.Contains(t, out, "crux api returned HTTP 404")
	assert.Contains(t, out, "Fetched 2 URLs (1 succeeded, 1 failed)")
	assert.Contains(t, out, "Cache backend: sqlite")
}

func TestWriteResultsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResultsCSV(&buf, sampleResults()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 2 metrics + 1 failure

	assert.Equal(t, "url", records[0][0])
	assert.Equal(t, []string{"https://a.example", "ok", "1", "cumulative_layout_shift", "0.8", "0.15", "0.05", "0.05", "", ""}, records[1])
	assert.Equal(t, "largest_contentful_paint", records[2][3])
	assert.Equal(t, "2400", records[2][7])
	assert.Equal(t, []string{"https://b.example", "failed", "3", "", "", "", "", "", "status", "crux api returned HTTP 404"}, records[3])
}

func TestPrintResultsJSONFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "results.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: out}
	require.NoError(t, PrintResults(sampleResults(), cfg, time.Second))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(content, &decoded))
	require.Len(t, decoded, 2)
	assert.Contains(t, decoded[0], "data")
	assert.NotContains(t, decoded[0], "error")
	assert.Equal(t, "crux api returned HTTP 404", decoded[1]["error"])
	assert.NotContains(t, decoded[1], "data")
}

func TestPrintResultsParquetUnsupported(t *testing.T) {
	err := PrintResults(sampleResults(), &contract.Config{Output: schema.ParquetOut}, time.Second)
	assert.ErrorContains(t, err, "only supported by the summary command")
}

func TestGetMaxTableURLWidth(t *testing.T) {
	assert.Equal(t, minURLWidth, getMaxTableURLWidth(&contract.Config{Width: 40}))
	assert.Equal(t, 40, getMaxTableURLWidth(&contract.Config{Width: 100}))
	assert.Equal(t, maxURLWidth, getMaxTableURLWidth(&contract.Config{Width: 400}))
}
