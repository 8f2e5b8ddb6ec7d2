// Package shutdown coordinates graceful process termination.
//
// Shutdown starts on SIGINT, SIGTERM or an explicit Trigger (the console
// "quit" command). Registered hooks then run in reverse order under a
// shared deadline.
package shutdown
