// Package confloader loads configuration through koanf.
//
// Sources, lowest priority first:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML configuration file
//  3. SABERTOOTH_* environment variables
//  4. Command-line flags, passed in as a map
//
// Environment keys use a double underscore for nesting, so
// SABERTOOTH_SITES__POLL_INTERVAL sets sites.poll_interval.
package confloader
