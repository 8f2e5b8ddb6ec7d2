// Package config holds sabertooth-cli settings.
//
// Settings come from ~/.sabertooth/cli.yaml, then SABERTOOTH_CLI_*
// environment variables, then command-line flags.
package config
