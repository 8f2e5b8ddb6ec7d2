package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/cli/config"
	"github.com/yndnr/sabertooth-go/internal/cli/connection"
	"github.com/yndnr/sabertooth-go/internal/cli/output"
	"github.com/yndnr/sabertooth-go/internal/infra/buildinfo"
)

const metaConfig = "cliConfig"

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "sabertooth-cli",
		Usage:   "manage a running sabertooth server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			StatusCommand(),
			MandatesCommand(),
			RoutesCommand(),
			DiagnosticsCommand(),
			RebuildCommand(),
			HealthCommand(),
			ShutdownCommand(),
			ShellCommand(),
			ConfigCommand(),
		},
		Before: loadConfig,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "CLI config file",
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "socket",
			Aliases: []string{"s"},
			Usage:   "console socket of the server",
		},
		&cli.StringFlag{
			Name:    "admin",
			Aliases: []string{"a"},
			Usage:   "admin listener address, e.g. 127.0.0.1:9090",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "admin bearer token",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show more columns",
		},
	}
}

// loadConfig layers explicitly set flags over the CLI config file and
// environment.
func loadConfig(c *cli.Context) error {
	overrides := map[string]any{}
	for _, name := range []string{"socket", "admin", "token", "output"} {
		if c.IsSet(name) {
			overrides[name] = c.String(name)
		}
	}
	cfg, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return fmt.Errorf("load cli config: %w", err)
	}
	if _, err := output.ParseFormat(cfg.Output); err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[metaConfig] = cfg
	return nil
}

// Config returns the effective CLI config.
func Config(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func outputFormat(c *cli.Context) output.Format {
	f, _ := output.ParseFormat(Config(c).Output)
	return f
}

func formatter(c *cli.Context) output.Formatter {
	return output.NewFormatter(outputFormat(c), c.Bool("wide"))
}

func stdout(c *cli.Context) io.Writer { return c.App.Writer }

// socketClient opens the console. The caller closes it.
func socketClient(c *cli.Context) *connection.SocketClient {
	return connection.NewSocketClient(Config(c).Socket)
}

// adminClient returns nil when no admin address is configured.
func adminClient(c *cli.Context) *connection.HTTPClient {
	cfg := Config(c)
	if cfg.Admin == "" {
		return nil
	}
	return connection.NewHTTPClient(cfg.Admin, cfg.Token)
}

var errNeedsAdmin = errors.New("structured output needs the admin API, set --admin")

// consoleOnly rejects structured output for socket-backed commands.
func consoleOnly(c *cli.Context) error {
	if outputFormat(c) != output.FormatTable {
		return errNeedsAdmin
	}
	return nil
}

// runConsole sends one line to the console and prints the reply body.
func runConsole(c *cli.Context, line string) error {
	if err := consoleOnly(c); err != nil {
		return err
	}
	client := socketClient(c)
	defer client.Close()

	body, err := client.Execute(line)
	fmt.Fprint(stdout(c), body)
	return err
}
