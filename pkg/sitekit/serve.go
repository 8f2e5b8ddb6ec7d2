package sitekit

import (
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"github.com/yndnr/sabertooth-go/pkg/site"
)

// Module is what a plugin binary serves.
type Module struct {
	Sites []site.Declaration
	// RefreshInterval asks the server to poll this mandate's sources at a
	// different period. Zero keeps the server default.
	RefreshInterval time.Duration
}

// Serve serves m to the launching server and blocks until it disconnects.
func Serve(m Module) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins:         PluginMap(&m),
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:       "site",
			Level:      hclog.Info,
			Output:     os.Stderr,
			JSONFormat: true,
		}),
	})
}
