// Package output renders sabertooth-cli results as a table, JSON or YAML.
package output
