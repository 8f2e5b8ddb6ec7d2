// Package localserver provides the line-oriented management console.
//
// The console is served on standard input and on a Unix domain socket.
// Access control for the socket is the file mode of the socket itself.
//
// Every reply ends with a line "+OK" or "-ERR <message>":
//
//	status               server and snapshot summary
//	mandates             one line per mandate
//	diagnostics <name>   diagnostics of the last failed build
//	routes               subdomain to mandate table
//	rebuild <name>       build a mandate now
//	quit                 graceful shutdown (aliases exit, shutdown)
//	help                 list commands
package localserver
