package config

import "time"

// GeofenceConfig tunes the auto-checkout decision.
type GeofenceConfig struct {
	ExitRadiusMeters  float64
	MinOutsideSamples int
	MinOutsideDwell   time.Duration
	CacheTTL          time.Duration // guest-list cache entry lifetime
}

// LoadGeofenceConfig reads geofence settings with defaults suitable for a
// house-party-sized venue and consumer GPS accuracy.
func LoadGeofenceConfig() GeofenceConfig {
	cfg := GeofenceConfig{
		ExitRadiusMeters:  float64(envInt("GEOFENCE_EXIT_RADIUS_M", 150)),
		MinOutsideSamples: envInt("GEOFENCE_MIN_OUTSIDE_SAMPLES", 3),
		MinOutsideDwell:   envDur("GEOFENCE_MIN_OUTSIDE_DWELL", 30*time.Second),
		CacheTTL:          envDur("GUESTLIST_CACHE_TTL", 30*time.Second),
	}
	if cfg.ExitRadiusMeters <= 0 {
		cfg.ExitRadiusMeters = 150
	}
	if cfg.MinOutsideSamples < 1 {
		cfg.MinOutsideSamples = 1
	}
	return cfg
}
