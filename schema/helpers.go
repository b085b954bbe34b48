package schema

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TitleCase turns a snake_case name into "Title Case".
func TitleCase(snake string) string {
	parts := strings.Split(snake, "_")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(p)
		out = append(out, string(unicode.ToUpper(r))+strings.ToLower(p[size:]))
	}
	return strings.Join(out, " ")
}

// DisplayName returns the title-cased name of a metric.
func (m Metric) DisplayName() string {
	return TitleCase(string(m))
}

// MetricNames converts metrics into plain strings.
func MetricNames(metrics []Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names
}
