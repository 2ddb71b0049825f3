package config

import "time"

// RealtimeConfig tunes subscription reconnects on the change-propagation
// bus.  The delay doubles each attempt from Base; after MaxReconnects
// consecutive failures a subscription goes permanently exhausted and the
// client surfaces a "live updates stopped" state.
type RealtimeConfig struct {
	ReconnectBase time.Duration
	MaxReconnects int
}

// LoadRealtimeConfig reads realtime settings with defaults.
func LoadRealtimeConfig() RealtimeConfig {
	cfg := RealtimeConfig{
		ReconnectBase: envDur("REALTIME_RECONNECT_BASE", 500*time.Millisecond),
		MaxReconnects: envInt("REALTIME_MAX_RECONNECTS", 8),
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = 500 * time.Millisecond
	}
	if cfg.MaxReconnects < 1 {
		cfg.MaxReconnects = 1
	}
	return cfg
}
