// services/pulse/config.go
package pulse

import "pulsecode-go/types"

// Config is supplied on the "config/pulse" bus topic.
type Config struct {
	Channels []ChannelConfig `json:"channels"`
}

// ChannelConfig describes one channel to be managed by the service.
type ChannelConfig struct {
	Name string     `json:"name"`
	Dir  types.Kind `json:"dir"` // "tx" or "rx"

	Tx *types.TxChannelConfig `json:"tx,omitempty"`
	Rx *types.RxChannelConfig `json:"rx,omitempty"`
}
