// Package process compiles Go mandates into plugin executables.
//
// A mandate's sources must be files of one main package in one directory,
// normally inside a module that requires pkg/sitekit. Each build runs
// "go build -tags <refs> -o <build dir>/<name>-<ulid>" and launches the
// result with hashicorp/go-plugin over net/rpc. The process lives as long
// as its generation and is killed, and its binary removed, on Close.
//
// A minimal plugin:
//
//	func main() {
//		sitekit.Serve(sitekit.Module{Sites: []site.Declaration{
//			{Name: "blog", Subdomains: []string{"blog"}, Site: blog{}},
//		}})
//	}
package process
