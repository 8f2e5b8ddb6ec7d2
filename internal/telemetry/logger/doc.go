// Package logger builds the server's structured loggers.
//
// It wraps log/slog with:
//
//   - JSON or text output with a process-wide dynamic level
//   - Redaction of credential-bearing attributes (authorization, cookie, password)
//   - Context propagation of request and connection IDs
//   - An hclog adapter so plugin host libraries log through slog
package logger
