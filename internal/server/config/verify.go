package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
)

// Verify validates the configuration. It creates the build directory
// when one is configured.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		verifyLimits(&cfg.Limits),
		verifySites(&cfg.Sites),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	var errs []error
	if err := verifyAddr("server.web.addr", cfg.Web.Addr); err != nil {
		errs = append(errs, err)
	}
	if cfg.Admin.Addr != "" {
		if err := verifyAddr("server.admin.addr", cfg.Admin.Addr); err != nil {
			errs = append(errs, err)
		}
		if cfg.Admin.Addr == cfg.Web.Addr {
			errs = append(errs, errors.New("server.admin.addr must differ from server.web.addr"))
		}
	}
	if cfg.Web.ReadTimeout <= 0 || cfg.Web.WriteTimeout <= 0 || cfg.Web.IdleTimeout <= 0 {
		errs = append(errs, errors.New("server.web timeouts must be positive"))
	}
	if cfg.Web.RateLimit < 0 {
		errs = append(errs, errors.New("server.web.rate_limit must not be negative"))
	}
	if cfg.Web.RateLimit > 0 && cfg.Web.RateBurst < 1 {
		errs = append(errs, errors.New("server.web.rate_burst must be at least 1 when rate limiting"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}

func verifyAddr(key, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func verifyLimits(cfg *LimitsSection) error {
	if cfg.MaxHeaderLine < 64 {
		return errors.New("limits.max_header_line must be at least 64")
	}
	if cfg.MaxHeaderBytes < cfg.MaxHeaderLine {
		return errors.New("limits.max_header_bytes must be at least limits.max_header_line")
	}
	if cfg.MaxBodyBytes < 0 {
		return errors.New("limits.max_body_bytes must not be negative")
	}
	return nil
}

func verifySites(cfg *SitesSection) error {
	if cfg.Dir == "" {
		return errors.New("sites.dir is required")
	}
	fi, err := os.Stat(cfg.Dir)
	if err != nil {
		return fmt.Errorf("sites.dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("sites.dir: %s is not a directory", cfg.Dir)
	}
	if cfg.PollInterval <= 0 {
		return errors.New("sites.poll_interval must be positive")
	}
	if cfg.Debounce < 0 {
		return errors.New("sites.debounce must not be negative")
	}
	if cfg.BuildTimeout <= 0 {
		return errors.New("sites.build_timeout must be positive")
	}
	if cfg.ScriptTimeout <= 0 {
		return errors.New("sites.script_timeout must be positive")
	}
	if cfg.PluginTimeout <= 0 {
		return errors.New("sites.plugin_timeout must be positive")
	}
	if cfg.BuildDir != "" {
		if err := os.MkdirAll(cfg.BuildDir, 0o750); err != nil {
			return fmt.Errorf("sites.build_dir: %w", err)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
		return nil
	}
	return fmt.Errorf("log.format: unknown format %q", cfg.Format)
}
