package config

import serverconfig "github.com/yndnr/sabertooth-go/internal/server/config"

// CLIConfig is the configuration for sabertooth-cli.
type CLIConfig struct {
	// Socket is the console socket of the local server.
	Socket string `koanf:"socket" yaml:"socket" json:"socket"`
	// Admin is the admin listener address. When set, read-only commands go
	// over HTTP instead of the socket.
	Admin string `koanf:"admin" yaml:"admin,omitempty" json:"admin,omitempty"`
	// Token is the admin bearer token.
	Token string `koanf:"token" yaml:"token,omitempty" json:"token,omitempty"`
	// Output is table, json or yaml.
	Output string `koanf:"output" yaml:"output" json:"output"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Socket: serverconfig.DefaultLocalSocket,
		Output: "table",
	}
}
