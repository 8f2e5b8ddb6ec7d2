package config

import "time"

// Default configuration values.
const (
	DefaultWebAddr         = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRateLimit       = 0
	DefaultRateBurst       = 50
	DefaultShutdownTimeout = 15 * time.Second
	DefaultLocalSocket     = "/var/run/sabertooth/sabertooth.sock"

	DefaultMaxHeaderLine  = 8 << 10
	DefaultMaxHeaderBytes = 64 << 10
	DefaultMaxBodyBytes   = 8 << 20

	DefaultSitesDir      = "Sites"
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultDebounce      = 100 * time.Millisecond
	DefaultGoBinary      = "go"
	DefaultBuildTimeout  = 2 * time.Minute
	DefaultScriptTimeout = 10 * time.Second
	DefaultPluginTimeout = 10 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Web: WebConfig{
				Addr:         DefaultWebAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				RateLimit:    DefaultRateLimit,
				RateBurst:    DefaultRateBurst,
			},
			Local: LocalConfig{
				Path:  DefaultLocalSocket,
				Stdin: true,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Limits: LimitsSection{
			MaxHeaderLine:  DefaultMaxHeaderLine,
			MaxHeaderBytes: DefaultMaxHeaderBytes,
			MaxBodyBytes:   DefaultMaxBodyBytes,
		},
		Sites: SitesSection{
			Dir:           DefaultSitesDir,
			PollInterval:  DefaultPollInterval,
			Debounce:      DefaultDebounce,
			GoBinary:      DefaultGoBinary,
			BuildTimeout:  DefaultBuildTimeout,
			ScriptTimeout: DefaultScriptTimeout,
			PluginTimeout: DefaultPluginTimeout,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
