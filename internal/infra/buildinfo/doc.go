// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/sabertooth-go/internal/infra/buildinfo.Version=1.0.0"
package buildinfo
