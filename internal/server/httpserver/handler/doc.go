// Package handler provides the admin API handlers.
//
// Handlers read registry state through Backend and answer with the JSON
// envelope in types.go. Domain errors map to HTTP statuses by code.
package handler
