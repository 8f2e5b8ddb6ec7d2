// Package connection provides the transports sabertooth-cli talks over.
//
//   - socket.go: the line console on the server's Unix socket
//   - http.go: the admin HTTP API
package connection
