package contract

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/huangsam/cruxreport/schema"
)

// User-facing validation messages.
const (
	MsgNoURLs        = "Please enter at least one URL"
	MsgInvalidURL    = "Invalid URL format"
	MsgDuplicateURLs = "Duplicate URLs are not allowed"
	MsgFormFactor    = "Form factor must be one of: Phone, Desktop, Tablet"
)

// TooManyURLsMessage returns the message for a request above the URL limit.
func TooManyURLsMessage(maxURLs int) string {
	return fmt.Sprintf("Too many URLs. Maximum allowed is %d", maxURLs)
}

// FieldError is a single validation failure tied to a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every validation failure of a request.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// IsValidURL reports whether s is an absolute http(s) URL whose host contains a dot.
func IsValidURL(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return strings.Contains(u.Hostname(), ".")
}

// ValidateCruxRequest checks a lookup request and returns its normalized form.
// Missing metrics default to the full vocabulary in its fixed order.
func ValidateCruxRequest(req schema.CruxRequest, maxURLs int) (schema.CruxRequest, error) {
	var errs ValidationErrors
	out := schema.CruxRequest{FormFactor: req.FormFactor}

	switch {
	case len(req.URLs) == 0:
		errs = append(errs, FieldError{Field: "urls", Message: MsgNoURLs})
	case maxURLs > 0 && len(req.URLs) > maxURLs:
		errs = append(errs, FieldError{Field: "urls", Message: TooManyURLsMessage(maxURLs)})
	default:
		seen := make(map[string]struct{}, len(req.URLs))
		for i, raw := range req.URLs {
			u := strings.TrimSpace(raw)
			if !IsValidURL(u) {
				errs = append(errs, FieldError{Field: fmt.Sprintf("urls[%d]", i), Message: MsgInvalidURL})
				continue
			}
			if _, dup := seen[u]; dup {
				errs = append(errs, FieldError{Field: fmt.Sprintf("urls[%d]", i), Message: MsgDuplicateURLs})
				continue
			}
			seen[u] = struct{}{}
			out.URLs = append(out.URLs, u)
		}
	}

	if len(req.Metrics) == 0 {
		out.Metrics = slices.Clone(schema.AllMetrics)
	} else {
		for _, m := range req.Metrics {
			if _, ok := schema.ValidMetrics[m]; !ok {
				errs = append(errs, FieldError{Field: "metrics", Message: fmt.Sprintf("Unknown metric: %s", m)})
				continue
			}
			if !slices.Contains(out.Metrics, m) {
				out.Metrics = append(out.Metrics, m)
			}
		}
	}

	if _, ok := schema.ValidFormFactors[req.FormFactor]; !ok {
		errs = append(errs, FieldError{Field: "formFactor", Message: MsgFormFactor})
	}

	if len(errs) > 0 {
		return schema.CruxRequest{}, errs
	}
	return out, nil
}

// ParseMetrics parses a comma-separated metric list. An empty list selects all metrics.
func ParseMetrics(raw string) ([]schema.Metric, error) {
	var metrics []schema.Metric
	for part := range strings.SplitSeq(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		m := schema.Metric(name)
		if _, ok := schema.ValidMetrics[m]; !ok {
			return nil, fmt.Errorf("invalid metric '%s'. must be one of %s", name, strings.Join(schema.MetricNames(schema.AllMetrics), ", "))
		}
		if !slices.Contains(metrics, m) {
			metrics = append(metrics, m)
		}
	}
	if len(metrics) == 0 {
		return slices.Clone(schema.AllMetrics), nil
	}
	return metrics, nil
}

// ParseFormFactor parses a form factor case-insensitively. An empty value means all devices.
func ParseFormFactor(raw string) (schema.FormFactor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return schema.UnspecifiedFormFactor, nil
	}
	for ff := range schema.ValidFormFactors {
		if ff != schema.UnspecifiedFormFactor && strings.EqualFold(string(ff), raw) {
			return ff, nil
		}
	}
	return "", fmt.Errorf("invalid form factor '%s'. must be phone, desktop, tablet", raw)
}

// ReadURLsFile reads one URL per line. Blank lines and lines starting with '#' are skipped.
func ReadURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open urls file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read urls file: %w", err)
	}
	return urls, nil
}
