// Package main provides the entry point for sabertooth-server.
//
// The server builds every mandate found in the sites directory and serves
// the sites they declare:
//
//   - HTTP/1.1 listener routing requests by subdomain
//   - Optional admin listener with health probes, metrics and the /v1 API
//   - Management console on a Unix socket and on standard input
//
// Usage:
//
//	sabertooth-server [flags]
//	sabertooth-server --config /etc/sabertooth/server.yaml
//	sabertooth-server --sites ./Sites --addr :8080 --no-stdin
//
// Configuration is layered: defaults, then the config file, then
// SABERTOOTH_* environment variables (nested keys use "__"), then flags.
package main
