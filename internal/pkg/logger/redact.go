package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	local, host, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(host, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + host
	}
	return "***@" + host
}
