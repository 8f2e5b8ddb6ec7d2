package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/cli/config"
	"github.com/yndnr/sabertooth-go/internal/infra/confloader"
	serverconfig "github.com/yndnr/sabertooth-go/internal/server/config"
)

// ConfigCommand groups config helpers.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "CLI settings and server config checks",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "show the effective CLI settings",
				Action: configShow,
			},
			{
				Name:   "save",
				Usage:  "write the effective CLI settings to the config file",
				Action: configSave,
			},
			{
				Name:      "test",
				Usage:     "validate a server config file",
				ArgsUsage: "FILE",
				Action:    configTest,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg := *Config(c)
	if cfg.Token != "" {
		cfg.Token = "****"
	}
	return formatter(c).Format(stdout(c), cfg)
}

func configSave(c *cli.Context) error {
	path := c.String("config")
	if err := config.Save(Config(c), path); err != nil {
		return err
	}
	fmt.Fprintf(stdout(c), "saved %s\n", path)
	return nil
}

// configTest loads FILE the way the server does, environment included,
// and runs the server's checks.
func configTest(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("configuration file path required")
	}

	cfg := serverconfig.Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		return err
	}
	if err := serverconfig.Verify(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(stdout(c), "%s: ok\n", path)
	fmt.Fprintf(stdout(c), "  web %s, sites %s\n", cfg.Server.Web.Addr, cfg.Sites.Dir)
	if extra := strings.TrimSpace(cfg.Server.Admin.Addr); extra != "" {
		fmt.Fprintf(stdout(c), "  admin %s\n", extra)
	}
	return nil
}
