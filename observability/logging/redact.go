package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the placeholder substituted for sensitive values in logs.
const RedactedValue = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"token":         {},
	"secret":        {},
	"jwt":           {},
}

// Sensitive reports whether a log key carries credential material. RPC
// request logging masks these before emitting.
func Sensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns a slog attribute with the value redacted when the key
// is sensitive. Empty values pass through untouched.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || !Sensitive(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
