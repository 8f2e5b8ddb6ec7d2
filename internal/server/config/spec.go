package config

import "time"

// ServerConfig is the root configuration for sabertooth-server.
type ServerConfig struct {
	Server ServerSection `koanf:"server"`
	Limits LimitsSection `koanf:"limits"`
	Sites  SitesSection  `koanf:"sites"`
	Log    LogSection    `koanf:"log"`
}

// ServerSection configures listeners.
type ServerSection struct {
	Web   WebConfig   `koanf:"web"`
	Admin AdminConfig `koanf:"admin"`
	Local LocalConfig `koanf:"local"`

	// ShutdownTimeout bounds graceful draining.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// WebConfig configures the public HTTP/1.1 listener.
type WebConfig struct {
	Addr string `koanf:"addr"`

	// ReadTimeout bounds reading one request once its first byte arrived.
	ReadTimeout time.Duration `koanf:"read_timeout"`
	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration `koanf:"write_timeout"`
	// IdleTimeout bounds the wait for the next request on a kept-alive connection.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	// RateBurst is the token bucket size.
	RateBurst int `koanf:"rate_burst"`
}

// AdminConfig configures the optional metrics and health listener.
type AdminConfig struct {
	// Addr is empty to disable the listener.
	Addr string `koanf:"addr"`
	// Token, when set, is required as a Bearer token on every admin request.
	Token string `koanf:"token"`
	// Allow restricts admin clients to these IPs or CIDRs.
	Allow []string `koanf:"allow"`
}

// LocalConfig configures the management console.
type LocalConfig struct {
	// Path is the Unix socket path. Empty disables the socket.
	Path string `koanf:"path"`
	// Stdin enables the console on standard input.
	Stdin bool `koanf:"stdin"`
}

// LimitsSection bounds what a client may send.
type LimitsSection struct {
	MaxHeaderLine  int   `koanf:"max_header_line"`
	MaxHeaderBytes int   `koanf:"max_header_bytes"`
	MaxBodyBytes   int64 `koanf:"max_body_bytes"`
}

// SitesSection configures mandate discovery and building.
type SitesSection struct {
	// Dir holds the *.sbr manifests and their sources.
	Dir string `koanf:"dir"`
	// PollInterval is the default watchdog period.
	PollInterval time.Duration `koanf:"poll_interval"`
	// Debounce collapses bursts of file events before a rebuild.
	Debounce time.Duration `koanf:"debounce"`
	// BuildDir receives compiled plugin binaries. Defaults to a temp dir.
	BuildDir string `koanf:"build_dir"`
	// GoBinary is the toolchain used for Go-source mandates.
	GoBinary string `koanf:"go_binary"`
	// BuildTimeout bounds one compile.
	BuildTimeout time.Duration `koanf:"build_timeout"`
	// ScriptTimeout bounds one call into a script mandate.
	ScriptTimeout time.Duration `koanf:"script_timeout"`
	// PluginTimeout bounds one call into a Go-source mandate process.
	PluginTimeout time.Duration `koanf:"plugin_timeout"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
