// Package registry aggregates mandates into one routing snapshot.
//
// A Snapshot maps subdomain labels to the mandate that claims them, plus an
// optional root mandate. Snapshots are immutable and replaced wholesale by
// a single coordinator goroutine after every successful build. Readers load
// the current pointer once per request.
//
// When two mandates claim the same subdomain, or both claim root, the one
// whose manifest name sorts first wins and the other claim is logged.
package registry
