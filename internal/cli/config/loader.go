package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/yndnr/sabertooth-go/internal/infra/confloader"
)

// EnvPrefix prefixes environment overrides, e.g. SABERTOOTH_CLI_SOCKET.
const EnvPrefix = "SABERTOOTH_CLI_"

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".sabertooth", "cli.yaml")
}

// Load layers the file at path (skipped when missing), the environment
// and overrides over the defaults.
func Load(path string, overrides map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}

	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithEnvPrefix(EnvPrefix),
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, readable only by the owner since it may hold
// the admin token.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
