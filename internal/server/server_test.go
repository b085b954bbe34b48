package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/cruxreport/core"
	"github.com/huangsam/cruxreport/core/agg"
	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	return &contract.Config{
		Environment:     "test",
		MaxURLs:         3,
		RateLimit:       100,
		RateWindow:      15 * time.Minute,
		MaxRequestBytes: 1 << 20,
		AllowedOrigins:  []string{"http://localhost:3000"},
	}
}

func newTestServer(runner contract.CruxRunner, cfg *contract.Config) *APIServer {
	api := NewAPIServer(cfg, runner, nil)
	api.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return api
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newTestServer(&core.MockCruxRunner{}, testConfig()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","timestamp":"2025-03-01T12:00:00Z","environment":"test"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestCruxHandlerSuccess(t *testing.T) {
	runner := &core.MockCruxRunner{}
	want := schema.CruxRequest{
		URLs:       []string{"https://a.example", "https://b.example"},
		Metrics:    []schema.Metric{schema.LargestContentfulPaint},
		FormFactor: schema.PhoneFormFactor,
	}
	runner.On("Results", mock.Anything, want).Return([]schema.URLResult{
		schema.NewSuccess("https://a.example", schema.MetricSet{}, 1),
		schema.NewFailure("https://b.example", "crux api returned HTTP 404", fetch.ReasonStatus, 3),
	}, nil)

	h := newTestServer(runner, testConfig()).Handler()
	rec := post(t, h, "/api/crux", `{"urls":["https://a.example","https://b.example"],"metrics":["largest_contentful_paint"],"formFactor":"Phone"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"url":"https://a.example","data":{}},{"url":"https://b.example","error":"crux api returned HTTP 404","reason":"status","attempts":3}]`, rec.Body.String())
	runner.AssertExpectations(t)
}

func TestCruxHandlerRequestIDReachesRunner(t *testing.T) {
	runner := &core.MockCruxRunner{}
	runner.On("Results", mock.MatchedBy(func(ctx context.Context) bool {
		return core.RequestID(ctx) == "req-42"
	}), mock.Anything).Return([]schema.URLResult{}, nil)

	h := newTestServer(runner, testConfig()).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/crux", strings.NewReader(`{"urls":["https://a.example"]}`))
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
	runner.AssertExpectations(t)
}

func TestCruxHandlerValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no urls", `{"urls":[]}`, contract.MsgNoURLs},
		{"too many urls", `{"urls":["https://a.example","https://b.example","https://c.example","https://d.example"]}`, contract.TooManyURLsMessage(3)},
		{"invalid url", `{"urls":["notaurl"]}`, contract.MsgInvalidURL},
		{"bad form factor", `{"urls":["https://a.example"],"formFactor":"Watch"}`, contract.MsgFormFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &core.MockCruxRunner{}
			rec := post(t, newTestServer(runner, testConfig()).Handler(), "/api/crux", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[validationResponse](t, rec)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.message, resp.Errors[0].Message)
			runner.AssertNotCalled(t, "Results", mock.Anything, mock.Anything)
		})
	}
}

func TestCruxHandlerMalformedBody(t *testing.T) {
	rec := post(t, newTestServer(&core.MockCruxRunner{}, testConfig()).Handler(), "/api/crux", `{"urls":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidBody, decode[errorResponse](t, rec).Error)
}

func TestCruxHandlerConfigError(t *testing.T) {
	runner := &core.MockCruxRunner{}
	runner.On("Results", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: missing key", fetch.ErrConfig))

	rec := post(t, newTestServer(runner, testConfig()).Handler(), "/api/crux", `{"urls":["https://a.example"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgConfigError, decode[errorResponse](t, rec).Error)
}

func TestSummaryHandler(t *testing.T) {
	runner := &core.MockCruxRunner{}
	report := schema.SummaryReport{
		Rows:     []schema.SummaryRow{{Metric: schema.FirstContentfulPaint, Good: 0.5, NeedsImprovement: 0.4, Poor: 0.1, P75: 2000}},
		URLCount: 1,
	}
	results := []schema.URLResult{schema.NewSuccess("https://a.example", schema.MetricSet{}, 1)}
	runner.On("Summary", mock.Anything, mock.Anything).Return(report, results, nil)

	rec := post(t, newTestServer(runner, testConfig()).Handler(), "/api/crux/summary", `{"urls":["https://a.example"],"metrics":["first_contentful_paint"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.JSONEq(t, `[{"metric":"first_contentful_paint","good":0.5,"needs_improvement":0.4,"poor":0.1,"p75":2000}]`, string(body["rows"]))
	assert.JSONEq(t, `1`, string(body["url_count"]))
	assert.JSONEq(t, `[{"url":"https://a.example","data":{}}]`, string(body["results"]))
}

func TestSummaryHandlerUnavailable(t *testing.T) {
	runner := &core.MockCruxRunner{}
	runner.On("Summary", mock.Anything, mock.Anything).
		Return(schema.SummaryReport{}, nil, &agg.UnavailableError{URLs: []string{"https://b.example"}})

	rec := post(t, newTestServer(runner, testConfig()).Handler(), "/api/crux/summary", `{"urls":["https://a.example","https://b.example"]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, []string{"https://b.example"}, resp.URLs)
	assert.Contains(t, resp.Error, "https://b.example")
}

func TestSummaryHandlerInternalError(t *testing.T) {
	runner := &core.MockCruxRunner{}
	runner.On("Summary", mock.Anything, mock.Anything).Return(schema.SummaryReport{}, nil, context.Canceled)

	rec := post(t, newTestServer(runner, testConfig()).Handler(), "/api/crux/summary", `{"urls":["https://a.example"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, decode[errorResponse](t, rec).Error)
}

func TestMetricsHandler(t *testing.T) {
	h := newTestServer(&core.MockCruxRunner{}, testConfig()).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var defs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	assert.Len(t, defs, len(schema.AllMetrics))
}

func TestRequestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBytes = 16
	rec := post(t, newTestServer(&core.MockCruxRunner{}, cfg).Handler(), "/api/crux", `{"urls":["https://a.example"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, msgRequestTooLarge, decode[errorResponse](t, rec).Error)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	runner := &core.MockCruxRunner{}
	runner.On("Results", mock.Anything, mock.Anything).Return([]schema.URLResult{}, nil)
	h := newTestServer(runner, cfg).Handler()

	body := `{"urls":["https://a.example"]}`
	assert.Equal(t, http.StatusOK, post(t, h, "/api/crux", body).Code)
	assert.Equal(t, http.StatusOK, post(t, h, "/api/crux", body).Code)

	rec := post(t, h, "/api/crux", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, msgRateLimited, decode[errorResponse](t, rec).Error)

	// Health is not rate limited
	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestCORS(t *testing.T) {
	h := newTestServer(&core.MockCruxRunner{}, testConfig()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/crux", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoverer(t *testing.T) {
	api := newTestServer(&core.MockCruxRunner{}, testConfig())
	h := api.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSlowFetchOutlivesServerWriteTimeout(t *testing.T) {
	runner := &core.MockCruxRunner{}
	results := []schema.URLResult{schema.NewSuccess("https://a.example", schema.MetricSet{}, 1)}
	runner.On("Results", mock.Anything, mock.Anything).After(300*time.Millisecond).Return(results, nil)
	runner.On("Summary", mock.Anything, mock.Anything).After(300*time.Millisecond).
		Return(schema.SummaryReport{URLCount: 1}, results, nil)

	ts := httptest.NewUnstartedServer(newTestServer(runner, testConfig()).Handler())
	ts.Config.WriteTimeout = 100 * time.Millisecond
	ts.Start()
	defer ts.Close()

	for _, path := range []string{"/api/crux", "/api/crux/summary"} {
		t.Run(path, func(t *testing.T) {
			resp, err := ts.Client().Post(ts.URL+path, "application/json", strings.NewReader(`{"urls":["https://a.example"]}`))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), `"url":"https://a.example"`)
		})
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Addr = "127.0.0.1:0"
	api := newTestServer(&core.MockCruxRunner{}, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
