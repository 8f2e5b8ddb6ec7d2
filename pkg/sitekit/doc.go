// Package sitekit is the plugin side of out-of-process mandates.
//
// A mandate written in Go is a main package that declares its sites and
// hands them to Serve:
//
//	func main() {
//		sitekit.Serve(sitekit.Module{
//			Sites: []site.Declaration{
//				{Name: "home", Root: true, Site: home{}},
//			},
//		})
//	}
//
// The server builds the package, launches the binary and talks to it over
// hashicorp/go-plugin net/rpc. Streamed content is read to completion inside
// the plugin before it crosses the process boundary.
package sitekit
