package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lcpRecord = `{
	"record": {
		"key": {"url": "https://a.example/"},
		"metrics": {
			"largest_contentful_paint": {
				"histogram": [
					{"start": 0, "end": 2500, "density": 0.6},
					{"start": 2500, "end": 4000, "density": 0.3},
					{"start": 4000, "density": 0.1}
				],
				"percentiles": {"p75": 1800}
			},
			"cumulative_layout_shift": {
				"histogram": [
					{"start": "0.00", "end": "0.10", "density": 0.8},
					{"start": "0.10", "end": "0.25", "density": 0.15},
					{"start": "0.25", "density": 0.05}
				],
				"percentiles": {"p75": "0.05"}
			}
		}
	}
}`

func TestHTTPClientQuery(t *testing.T) {
	var got queryBody
	var gotKey, gotFoo, gotMethod, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotKey = r.URL.Query().Get("key")
		gotFoo = r.URL.Query().Get("foo")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(lcpRecord))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/v1/records:queryRecord?foo=bar", "secret", srv.Client())
	data, err := client.Query(context.Background(), Query{
		URL:        "https://a.example/",
		Metrics:    []schema.Metric{schema.LargestContentfulPaint, schema.CumulativeLayoutShift},
		FormFactor: schema.PhoneFormFactor,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "bar", gotFoo)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "https://a.example/", got.URL)
	assert.Equal(t, []string{"largest_contentful_paint", "cumulative_layout_shift"}, got.Metrics)
	assert.Equal(t, "PHONE", got.FormFactor)

	require.Contains(t, data, "largest_contentful_paint")
	require.Contains(t, data, "cumulative_layout_shift")
	cls, err := data["cumulative_layout_shift"].Percentiles.P75.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 0.05, cls, 1e-9)
}

func TestHTTPClientOmitsUnspecifiedFormFactor(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"record":{}}`))
	}))
	defer srv.Close()

	data, err := NewHTTPClient(srv.URL, "k", nil).Query(context.Background(), Query{URL: "https://a.example"})
	require.NoError(t, err)
	assert.NotNil(t, data)
	assert.Empty(t, data, "missing record.metrics yields an empty set")
	assert.NotContains(t, raw, "formFactor")
}

func TestHTTPClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reason  string
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"error":{"code":404,"message":"chrome ux report data not found"}}`,
			reason: ReasonStatus,
			checkFn: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, http.StatusNotFound, statusErr.Code)
				assert.Contains(t, statusErr.Body, "data not found")
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"record": {"metrics": [`,
			reason: ReasonDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, "k", srv.Client()).Query(context.Background(), Query{URL: "https://a.example"})
			require.Error(t, err)
			assert.Equal(t, tt.reason, reasonOf(err))
			if tt.checkFn != nil {
				tt.checkFn(t, err)
			}
		})
	}
}

func TestHTTPClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := NewHTTPClient(endpoint, "k", nil).Query(context.Background(), Query{URL: "https://a.example"})
	require.Error(t, err)
	assert.Equal(t, ReasonNetwork, reasonOf(err))
}

func TestFetchAgainstUnreachableURL(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body queryBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls[body.URL]++
		mu.Unlock()
		if body.URL == "https://b.example" {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(lcpRecord))
	}))
	defer srv.Close()

	f, err := New(Config{
		APIURL:         srv.URL,
		APIKey:         "k",
		BatchSize:      5,
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
		AttemptTimeout: time.Second,
	})
	require.NoError(t, err)

	results, err := f.Fetch(context.Background(), []string{"https://a.example", "https://b.example"},
		[]schema.Metric{schema.LargestContentfulPaint}, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Failed())
	assert.Contains(t, results[0].Data, "largest_contentful_paint")
	assert.True(t, results[1].Failed())
	assert.Equal(t, ReasonStatus, results[1].Reason)
	assert.Equal(t, 3, results[1].Attempts)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls["https://a.example"])
	assert.Equal(t, 3, calls["https://b.example"])
}
