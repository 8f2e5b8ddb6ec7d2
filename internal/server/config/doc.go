// Package config defines the sabertooth-server configuration.
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation of loaded values
//   - sanitize.go: Copy safe for logging
//
// Values are loaded via internal/infra/confloader from a YAML file,
// SABERTOOTH_* environment variables and command-line flags.
package config
