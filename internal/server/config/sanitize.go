package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked,
// for logging the effective configuration.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	if sanitized.Server.Admin.Token != "" {
		sanitized.Server.Admin.Token = maskSecret(sanitized.Server.Admin.Token)
	}
	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
