// services/pulse/internal/platform/platform_tinygo_other.go
//go:build tinygo && !rp2040 && !rp2350

package platform

import (
	"errors"

	"pulsecode-go/services/pulse/internal/pulsecore"
)

var errNoEngine = errors.New("no pulse engine for this target")

func NewTxEngine(cfg pulsecore.TxEngineConfig) (pulsecore.TxEngine, error) {
	return nil, errNoEngine
}

func NewRxEngine(cfg pulsecore.RxEngineConfig, done pulsecore.CaptureDone) (pulsecore.RxEngine, error) {
	return nil, errNoEngine
}

func DefaultEnabler() pulsecore.Enabler { return pulsecore.DirectEnabler }
