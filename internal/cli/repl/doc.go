// Package repl provides the interactive console shell of sabertooth-cli.
//
// Each line is forwarded to the server console. "exit" and "quit" leave
// the shell; "shutdown" stops the server. A line ending in "?" lists
// matching commands.
package repl
