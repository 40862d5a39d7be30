package errors

import "strings"

// messageEntry pairs an error-text substring with its user-facing sentence.
type messageEntry struct {
	substring string
	message   string
}

// friendlyMessages maps common error-text substrings to templated end-user
// sentences. Order matters: the first match wins, so more specific phrases
// come before generic ones.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var friendlyMessages = []messageEntry{
	{
		substring: "timeout",
		message:   "The operation took too long to complete. Please try again.",
	},
	{
		substring: "permission denied",
		message:   "You don't have permission to perform this operation.",
	},
	{
		substring: "access denied",
		message:   "Access denied. Please check your credentials.",
	},
	{
		substring: "connection",
		message:   "Unable to connect to the service. Please check your network connection.",
	},
	{
		substring: "not found",
		message:   "The requested resource was not found.",
	},
	{
		substring: "invalid",
		message:   "The provided input is invalid. Please check and try again.",
	},
}

// UserMessage rewrites an error into a readable end-user sentence.
// Known substrings map to fixed templates; anything unmatched becomes
// "An error occurred: <raw message>". Nil errors produce an empty string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	raw := err.Error()
	lower := strings.ToLower(raw)
	for _, entry := range friendlyMessages {
		if strings.Contains(lower, entry.substring) {
			return entry.message
		}
	}

	return "An error occurred: " + raw
}
