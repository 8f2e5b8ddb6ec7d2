package sitekit

import (
	goplugin "github.com/hashicorp/go-plugin"
)

// PluginName is the name the module is dispensed under.
const PluginName = "mandate"

// Handshake must match between server and plugin binaries. It guards
// against launching an unrelated executable, not against a hostile one.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "SABERTOOTH_PLUGIN",
	MagicCookieValue: "mandate",
}

// PluginMap returns the plugin set for impl. Hosts pass a nil impl.
func PluginMap(impl *Module) map[string]goplugin.Plugin {
	return map[string]goplugin.Plugin{
		PluginName: &Plugin{Impl: impl},
	}
}
