// Package fswatch turns fsnotify directory events into per-subscriber
// wake-up signals.
//
// Mandate watchdogs poll their files anyway; a Subscription only lets them
// react before the next poll tick.
package fswatch
