// Package logging provides logging utilities including sensitive data
// redaction. Generated commands routinely carry credentials (password
// resets embed the new password as a CLI argument), so anything that logs
// a command string goes through this package first.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns contains compiled regular expressions for detecting
// sensitive values in free text, including credentials embedded in
// generated CLI commands.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // Package-level patterns for reuse
	// OpenAI-style API keys (sk-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

	// AWS access key ids and secret values
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws_secret_access_key|secret_access_key)\s*[:=]\s*["']?[a-zA-Z0-9/+=]{20,}["']?`),

	// Password flags in generated commands (aws iam update-login-profile,
	// net user, passwd-style invocations)
	regexp.MustCompile(`(?i)(--password|-p)\s+\S+`),

	// Generic API keys (api_key, apikey, api-key followed by value)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?[a-zA-Z0-9_-]{16,}["']?`),

	// Bearer tokens
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`),

	// Generic secret patterns (secret, password, credential with values)
	regexp.MustCompile(`(?i)(secret|password|credential|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
}

// sensitiveFieldNames contains field names whose values are always redacted.
// Matching is case-insensitive and substring-based.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // Package-level patterns for reuse
	"api_key",
	"apikey",
	"api-key",
	"password",
	"passwd",
	"secret",
	"credential",
	"credentials",
	"token",
	"authorization",
	"openai_api_key",
}

// RedactHook is a zerolog hook that flags log entries containing sensitive
// data. Zerolog hooks cannot rewrite the message, so actual redaction
// happens at call sites via Redact/SafeValue and in file output via
// RedactingWriter; the hook marks anything that slipped through.
type RedactHook struct{}

// NewRedactHook creates a RedactHook.
func NewRedactHook() *RedactHook {
	return &RedactHook{}
}

// Run implements the zerolog.Hook interface.
func (h *RedactHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_redacted_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any sensitive pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// Redact replaces all sensitive pattern matches in value with RedactedValue.
// Use this when logging command strings or other potentially sensitive text.
func Redact(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName reports whether a field name indicates sensitive data.
func IsSensitiveFieldName(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}

// SafeValue returns a value fit for logging under the given field name:
// fully redacted if the name itself is sensitive, pattern-redacted otherwise.
//
// Usage:
//
//	log.Info().Str("command", logging.SafeValue("command", cmd)).Msg("executing")
func SafeValue(fieldName, value string) string {
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return Redact(value)
}

// RedactingWriter wraps an io.Writer and redacts sensitive data from all
// output. Log file writers are wrapped with this so credentials never
// reach disk even when a call site forgot to redact.
type RedactingWriter struct {
	w io.Writer
}

// NewRedactingWriter creates a RedactingWriter around w.
func NewRedactingWriter(w io.Writer) *RedactingWriter {
	return &RedactingWriter{w: w}
}

// Write implements io.Writer, redacting before writing. The original
// length is returned so callers do not observe a short write.
func (rw *RedactingWriter) Write(p []byte) (n int, err error) {
	filtered := Redact(string(p))
	if _, err = rw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
