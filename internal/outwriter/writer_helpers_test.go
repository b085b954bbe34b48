package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFormatter(t *testing.T) {
	tests := []struct {
		name      string
		precision int
		value     float64
		expected  string
	}{
		{"precision 2", 2, 0.456, "0.46"},
		{"precision 0", 0, 2399.6, "2400"},
		{"precision 4", 4, 0.08333, "0.0833"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, createFormatter(tt.precision)(tt.value))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]any{"url": "https://a.example"}))
	assert.Equal(t, "{\n  \"url\": \"https://a.example\"\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	assert.ErrorContains(t, err, "failed to encode JSON")
}

func TestWriteCSVWithHeader(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSVWithHeader(&buf, []string{"url", "error"}, func(w *csv.Writer) error {
		return w.Write([]string{"https://a.example", "crux api returned HTTP 404: a, b"})
	})
	require.NoError(t, err)
	assert.Equal(t, "url,error\nhttps://a.example,\"crux api returned HTTP 404: a, b\"\n", buf.String())

	err = writeCSVWithHeader(&buf, []string{"url"}, func(*csv.Writer) error { return assert.AnError })
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "out.txt")
	err := writeWithFile(tmpFile, func(w io.Writer) error {
		_, err := w.Write([]byte("report"))
		return err
	}, "Wrote test")
	require.NoError(t, err)

	content, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "report", string(content))
}

func TestWriteWithFileErrors(t *testing.T) {
	err := writeWithFile(filepath.Join(t.TempDir(), "out.txt"), func(io.Writer) error {
		return assert.AnError
	}, "Wrote test")
	assert.Equal(t, assert.AnError, err)

	err = writeWithFile("/nonexistent/path/file.txt", func(io.Writer) error { return nil }, "Wrote test")
	assert.Error(t, err)
}
