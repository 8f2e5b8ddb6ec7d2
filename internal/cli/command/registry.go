package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/cli/connection"
	"github.com/yndnr/sabertooth-go/internal/cli/output"
	"github.com/yndnr/sabertooth-go/internal/server/httpserver/handler"
)

const requestTimeout = 30 * time.Second

// StatusCommand shows the server summary.
func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show server and routing snapshot summary",
		Action: func(c *cli.Context) error {
			admin := adminClient(c)
			if admin == nil {
				return runConsole(c, "status")
			}
			var st handler.StatusResponse
			if err := adminGet(c, admin, "/v1/status", &st); err != nil {
				return err
			}
			return formatter(c).Format(stdout(c), st)
		},
	}
}

// MandatesCommand lists mandates.
func MandatesCommand() *cli.Command {
	return &cli.Command{
		Name:    "mandates",
		Aliases: []string{"ls"},
		Usage:   "list mandates and their build state",
		Action: func(c *cli.Context) error {
			admin := adminClient(c)
			if admin == nil {
				return runConsole(c, "mandates")
			}
			var list []handler.MandateInfo
			if err := adminGet(c, admin, "/v1/mandates", &list); err != nil {
				return err
			}
			return formatter(c).Format(stdout(c), list)
		},
	}
}

// RoutesCommand prints the subdomain table.
func RoutesCommand() *cli.Command {
	return &cli.Command{
		Name:  "routes",
		Usage: "show which mandate serves each subdomain",
		Action: func(c *cli.Context) error {
			admin := adminClient(c)
			if admin == nil {
				return runConsole(c, "routes")
			}
			var routes []handler.Route
			if err := adminGet(c, admin, "/v1/routes", &routes); err != nil {
				return err
			}
			return formatter(c).Format(stdout(c), routes)
		},
	}
}

// DiagnosticsCommand prints the last failed build of a mandate.
func DiagnosticsCommand() *cli.Command {
	return &cli.Command{
		Name:      "diagnostics",
		Aliases:   []string{"diag"},
		Usage:     "show diagnostics of a mandate's last failed build",
		ArgsUsage: "MANDATE",
		Action: func(c *cli.Context) error {
			name, err := mandateArg(c)
			if err != nil {
				return err
			}
			admin := adminClient(c)
			if admin == nil {
				return runConsole(c, "diagnostics "+name)
			}
			var info handler.MandateInfo
			if err := adminGet(c, admin, "/v1/mandates/"+name, &info); err != nil {
				return err
			}
			if outputFormat(c) != output.FormatTable {
				return formatter(c).Format(stdout(c), info)
			}
			w := stdout(c)
			if info.LastError == "" {
				fmt.Fprintln(w, "no failed build")
				return nil
			}
			fmt.Fprintf(w, "attempt: %s\n", info.LastAttempt.Format(time.RFC3339))
			fmt.Fprintf(w, "error: %s\n", info.LastError)
			for _, l := range info.Diagnostics {
				fmt.Fprintln(w, "  "+l)
			}
			return nil
		},
	}
}

// RebuildCommand builds a mandate now.
func RebuildCommand() *cli.Command {
	return &cli.Command{
		Name:      "rebuild",
		Usage:     "build a mandate now",
		ArgsUsage: "MANDATE",
		Action: func(c *cli.Context) error {
			name, err := mandateArg(c)
			if err != nil {
				return err
			}
			admin := adminClient(c)
			if admin == nil {
				return runConsole(c, "rebuild "+name)
			}

			var spin *output.Spinner
			if outputFormat(c) == output.FormatTable {
				spin = output.NewSpinner(c.App.ErrWriter, "rebuilding "+name)
				spin.Start()
			}
			ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
			defer cancel()

			var info handler.MandateInfo
			resp, err := admin.Post(ctx, "/v1/mandates/"+name+"/rebuild")
			if err == nil {
				err = connection.ParseResponse(resp, &info)
			}
			if spin != nil {
				if err != nil {
					spin.Fail(name)
					return err
				}
				spin.Success(fmt.Sprintf("%s build %d", info.Name, info.Build))
				return nil
			}
			if err != nil {
				return err
			}
			return formatter(c).Format(stdout(c), info)
		},
	}
}

func mandateArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one mandate name")
	}
	return c.Args().First(), nil
}

func adminGet(c *cli.Context, admin *connection.HTTPClient, path string, target any) error {
	ctx, cancel := context.WithTimeout(c.Context, requestTimeout)
	defer cancel()
	resp, err := admin.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return connection.ParseResponse(resp, target)
}
