// Package command defines the sabertooth-cli commands with urfave/cli/v2.
//
//   - root.go: the app, global flags and the CLI config
//   - registry.go: status, mandates, routes, diagnostics, rebuild
//   - shell.go: shutdown and the interactive console shell
//   - health.go: admin probes
//   - config.go: CLI settings and server config checks
//
// Read commands use the admin API when --admin is set and the console
// socket otherwise. Structured output (json, yaml) needs the admin API.
package command
