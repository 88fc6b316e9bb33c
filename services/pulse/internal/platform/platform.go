// services/pulse/internal/platform/platform.go

// Package platform supplies the pulse engine implementations for the build
// target: simulated engines on the host, bit-banged engines on RP2 boards.
package platform

import "errors"

var (
	errEngineClosed = errors.New("engine closed")
	errNotEnabled   = errors.New("engine not enabled")
)
