// Package webserver implements the public HTTP/1.1 listener.
//
// The protocol engine is hand-rolled: requests are read line by line from a
// bufio.Reader and responses are serialized in a fixed header order. Only
// Content-Length framing is supported; there is no chunked encoding,
// pipelining or compression. Each connection runs its own request loop
// and resolves the target site per request through a Resolver.
package webserver
