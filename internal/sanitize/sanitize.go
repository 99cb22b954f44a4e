// Package sanitize redacts personally identifying values from query results
// before they are cached or returned.
package sanitize

import (
	"regexp"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// Placeholder replaces every redacted value.
const Placeholder = "[redacted]"

var patterns = []*regexp.Regexp{
	// e-mail addresses and UPN-style usernames
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	// IPv4 addresses
	regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	// JWT-shaped bearer tokens
	regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`),
}

// Redactor rewrites string cells in place. Implements domain.Sanitizer.
type Redactor struct{}

// NewRedactor creates a Redactor.
func NewRedactor() *Redactor { return &Redactor{} }

var _ domain.Sanitizer = (*Redactor)(nil)

// Sanitize replaces PII-shaped substrings in every string cell. Non-string
// cells and column metadata are left untouched.
func (r *Redactor) Sanitize(result *domain.QueryResult) {
	if result == nil {
		return
	}
	for _, row := range result.Rows {
		for i, cell := range row {
			s, ok := cell.(string)
			if !ok {
				continue
			}
			row[i] = redact(s)
		}
	}
}

func redact(s string) string {
	for _, p := range patterns {
		s = p.ReplaceAllString(s, Placeholder)
	}
	return s
}
