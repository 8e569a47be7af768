package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches provider API keys passed as key=value pairs.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token|key)=[A-Za-z0-9-_\.]{16,}`)

	// Matches bearer tokens in header dumps.
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_\.]+`)

	// Matches user:pass@host credentials in connection strings.
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Matches password values in keyword-style connection strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)
)

// Sanitize removes API keys, bearer tokens and connection-string credentials
// from a string before logging. Use this on any value that may carry
// provider or database secrets.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	sanitized := apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// TruncateForLog shortens a prompt or idea string for inclusion in a
// structured log record without flooding the output.
func TruncateForLog(s string, max int) string {
	if max <= 0 {
		max = 120
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
