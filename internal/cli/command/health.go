package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/sabertooth-go/internal/cli/connection"
)

// HealthCommand checks the admin probes.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check the admin liveness and readiness probes",
		Action: func(c *cli.Context) error {
			admin := adminClient(c)
			if admin == nil {
				return errors.New("health needs the admin API, set --admin")
			}

			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()

			result := struct {
				Healthy bool   `json:"healthy"`
				Ready   bool   `json:"ready"`
				Detail  string `json:"detail,omitempty"`
			}{}
			for _, probe := range []struct {
				path string
				ok   *bool
			}{{"/healthz", &result.Healthy}, {"/readyz", &result.Ready}} {
				resp, err := admin.Get(ctx, probe.path)
				if err != nil {
					return fmt.Errorf("server unreachable: %w", err)
				}
				if err := connection.ParseResponse(resp, nil); err != nil {
					result.Detail = err.Error()
					continue
				}
				*probe.ok = true
			}

			if err := formatter(c).Format(stdout(c), result); err != nil {
				return err
			}
			if !result.Healthy || !result.Ready {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
