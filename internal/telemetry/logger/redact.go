package logger

import (
	"log/slog"
	"strings"
)

// Key fragments that mark an attribute as carrying a credential.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"authorization",
	"cookie",
	"credential",
	"token",
}

// Value schemes that are masked regardless of key.
var sensitiveValuePrefixes = []string{
	"Basic ",
	"Bearer ",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if v == "" {
			return a
		}
		for _, prefix := range sensitiveValuePrefixes {
			if strings.HasPrefix(v, prefix) {
				return slog.String(a.Key, prefix+redactedValue)
			}
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}
