// Package site defines the contract between the Sabertooth server and the
// site plugins it hosts.
//
// A plugin declares one or more sites. Each site implements [Site]:
//
//   - Get answers GET and HEAD requests
//   - Post answers POST requests (return [ErrNotImplemented] if unsupported)
//   - IsAuthorized decides whether the supplied credentials may proceed
//   - CacheMetadata supplies validators used for conditional requests
//
// The types in this package are plain values so they can cross a process
// boundary unchanged when a plugin runs out of process (see package sitekit).
package site
