// Package version records the build version reported by /healthz, the
// CLI and client compatibility checks.
package version

// Version is stamped at build time:
//
//	go build -ldflags "-X github.com/TimurManjosov/goconfigship/internal/version.Version=v1.0.0"
var Version = "0.1.0-dev"
