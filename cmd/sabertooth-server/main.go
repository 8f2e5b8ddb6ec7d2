package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/core/registry"
	"github.com/yndnr/sabertooth-go/internal/infra/buildinfo"
	"github.com/yndnr/sabertooth-go/internal/infra/confloader"
	"github.com/yndnr/sabertooth-go/internal/infra/fswatch"
	"github.com/yndnr/sabertooth-go/internal/infra/shutdown"
	"github.com/yndnr/sabertooth-go/internal/plugin"
	"github.com/yndnr/sabertooth-go/internal/plugin/process"
	"github.com/yndnr/sabertooth-go/internal/plugin/script"
	"github.com/yndnr/sabertooth-go/internal/server/config"
	"github.com/yndnr/sabertooth-go/internal/server/httpserver"
	"github.com/yndnr/sabertooth-go/internal/server/localserver"
	"github.com/yndnr/sabertooth-go/internal/server/webserver"
	"github.com/yndnr/sabertooth-go/internal/telemetry/logger"
	"github.com/yndnr/sabertooth-go/internal/telemetry/metric"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps flags to the configuration keys they override.
var flagKeys = map[string]string{
	"addr":      "server.web.addr",
	"admin":     "server.admin.addr",
	"socket":    "server.local.path",
	"sites":     "sites.dir",
	"build-dir": "sites.build_dir",
	"log-level": "log.level",
}

func app() *cli.App {
	return &cli.App{
		Name:    "sabertooth-server",
		Usage:   "Serve mandate-built sites over HTTP/1.1",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to configuration file", EnvVars: []string{"SABERTOOTH_CONFIG"}},
			&cli.StringFlag{Name: "addr", Usage: "web listen address"},
			&cli.StringFlag{Name: "admin", Usage: "admin listen address (empty disables)"},
			&cli.StringFlag{Name: "socket", Usage: "console socket path (empty disables)"},
			&cli.StringFlag{Name: "sites", Usage: "directory holding *.sbr manifests"},
			&cli.StringFlag{Name: "build-dir", Usage: "directory for compiled plugin binaries"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.BoolFlag{Name: "no-stdin", Usage: "do not read console commands from standard input"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	slog.SetDefault(log)

	log.Info("starting sabertooth-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", c.String("config"))
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Hooks run in reverse order of registration.
	reg := metric.NewRegistry()

	watcher, err := fswatch.New(fswatch.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init watcher: %w", err)
	}
	watcher.StartAsync()
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("stopping file watcher")
		return watcher.Stop()
	})

	compilers := plugin.NewDispatcher().
		Register(script.Extension, script.New(
			script.WithLogger(log),
			script.WithCallTimeout(cfg.Sites.ScriptTimeout),
		)).
		Register(process.Extension, process.New(
			process.WithGoBinary(cfg.Sites.GoBinary),
			process.WithBuildDir(cfg.Sites.BuildDir),
			process.WithCallTimeout(cfg.Sites.PluginTimeout),
			process.WithLogger(log),
		))

	manager := registry.NewManager(cfg.Sites.Dir, compilers,
		registry.WithLogger(log),
		registry.WithMetrics(reg),
		registry.WithWatcher(watcher),
		registry.WithPollInterval(cfg.Sites.PollInterval),
		registry.WithDebounce(cfg.Sites.Debounce),
		registry.WithBuildTimeout(cfg.Sites.BuildTimeout),
	)
	if err := manager.Start(ctx); err != nil {
		_ = watcher.Stop()
		return fmt.Errorf("start registry: %w", err)
	}
	reg.MustRegister(metric.NewCollector(manager.MetricStates))
	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("stopping registry")
		manager.Stop()
		return nil
	})

	console := localserver.New(cfg.Server.Local.Path,
		localserver.NewHandler(manager, shutdownHandler.Trigger, log), log)
	if cfg.Server.Local.Path != "" {
		if err := console.Listen(); err != nil {
			log.Warn("console socket unavailable", "socket", cfg.Server.Local.Path, "error", err)
		} else {
			shutdownHandler.OnShutdown(func(ctx context.Context) error {
				log.Info("shutting down console")
				err := console.Shutdown(ctx)
				_ = os.Remove(cfg.Server.Local.Path)
				return err
			})
			go func() {
				if err := console.Serve(ctx); err != nil {
					log.Error("console error", "error", err)
				}
			}()
		}
	}
	if cfg.Server.Local.Stdin && !c.Bool("no-stdin") {
		go console.Session(ctx, os.Stdin, os.Stdout)
	}

	if cfg.Server.Admin.Addr != "" {
		admin := httpserver.New(cfg.Server.Admin.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Backend:   manager,
			Metrics:   reg.Handler(),
			Token:     cfg.Server.Admin.Token,
			AllowList: cfg.Server.Admin.Allow,
			Logger:    log,
		}))
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down admin server")
			return admin.Shutdown(ctx)
		})
		go func() {
			log.Info("admin server listening", "addr", cfg.Server.Admin.Addr)
			if err := admin.ListenAndServe(); err != nil {
				log.Error("admin server error", "error", err)
				shutdownHandler.Trigger("admin server failed")
			}
		}()
	}

	web := webserver.New(webserver.Config{
		Addr:         cfg.Server.Web.Addr,
		ReadTimeout:  cfg.Server.Web.ReadTimeout,
		WriteTimeout: cfg.Server.Web.WriteTimeout,
		IdleTimeout:  cfg.Server.Web.IdleTimeout,
		RateLimit:    cfg.Server.Web.RateLimit,
		RateBurst:    cfg.Server.Web.RateBurst,
		Limits: webserver.Limits{
			MaxHeaderLine:  cfg.Limits.MaxHeaderLine,
			MaxHeaderBytes: cfg.Limits.MaxHeaderBytes,
			MaxBodyBytes:   cfg.Limits.MaxBodyBytes,
		},
	}, manager, webserver.WithLogger(log), webserver.WithMetrics(reg))
	if err := web.Listen(); err != nil {
		// Nothing has been triggered yet, so run the hooks registered so far.
		shutdownHandler.Trigger("web listener failed")
		_ = shutdownHandler.Wait(ctx)
		return err
	}
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down web server")
		return web.Shutdown(ctx)
	})
	go func() {
		if err := web.Serve(ctx); err != nil {
			log.Error("web server error", "error", err)
			shutdownHandler.Trigger("web server failed")
		}
	}()

	log.Info("server started", "sites", cfg.Sites.Dir)
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers defaults, file, environment and explicitly set flags,
// then validates the result.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg := config.Default()

	overrides := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.String(flag)
		}
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
