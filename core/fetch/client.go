package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/huangsam/cruxreport/schema"
)

// maxResponseBytes bounds the size of a decoded CrUX response.
const maxResponseBytes = 8 << 20

// Query is one CrUX record lookup.
type Query struct {
	URL        string
	Metrics    []schema.Metric
	FormFactor schema.FormFactor
}

// Client performs a single CrUX lookup. Implementations must honor ctx.
type Client interface {
	Query(ctx context.Context, q Query) (schema.MetricSet, error)
}

// HTTPClient queries the CrUX API over HTTP.
type HTTPClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ Client = &HTTPClient{} // Compile-time check

// NewHTTPClient returns a client for the given endpoint. A nil hc uses http.DefaultClient.
func NewHTTPClient(apiURL, apiKey string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{endpoint: apiURL, apiKey: apiKey, http: hc}
}

type queryBody struct {
	URL        string   `json:"url"`
	Metrics    []string `json:"metrics,omitempty"`
	FormFactor string   `json:"formFactor,omitempty"`
}

type queryResponse struct {
	Record struct {
		Metrics schema.MetricSet `json:"metrics"`
	} `json:"record"`
}

// Query sends POST <endpoint>?key=<apiKey> and decodes record.metrics.
func (c *HTTPClient) Query(ctx context.Context, q Query) (schema.MetricSet, error) {
	endpoint, err := c.requestURL()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(queryBody{
		URL:        q.URL,
		Metrics:    schema.MetricNames(q.Metrics),
		FormFactor: q.FormFactor.WireValue(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded queryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &AttemptError{Reason: ReasonDecode, Err: err}
	}
	if decoded.Record.Metrics == nil {
		return schema.MetricSet{}, nil
	}
	return decoded.Record.Metrics, nil
}

// requestURL appends the API key to the endpoint, keeping any existing query parameters.
func (c *HTTPClient) requestURL() (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid crux api url: %w", err)
	}
	values := u.Query()
	values.Set("key", c.apiKey)
	u.RawQuery = values.Encode()
	return u.String(), nil
}
