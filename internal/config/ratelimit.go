package config

import (
	"os"
	"strconv"
	"time"
)

// ScanLimitConfig tunes the token bucket on the door scan endpoints.
// Burst is the bucket capacity; one token refills every RefillEvery.
type ScanLimitConfig struct {
	Enabled     bool
	Burst       int
	RefillEvery time.Duration
	TTL         time.Duration
	Prefix      string
}

// LoadScanLimitConfig reads scan-limit settings with defaults sized for a
// human working a door: a short burst for back-to-back arrivals, then
// roughly one scan per second sustained.
func LoadScanLimitConfig() ScanLimitConfig {
	cfg := ScanLimitConfig{
		Enabled:     envBool("SCAN_LIMIT_ENABLED", true),
		Burst:       envInt("SCAN_LIMIT_BURST", 10),
		RefillEvery: envDur("SCAN_LIMIT_REFILL_EVERY", time.Second),
		TTL:         envDur("SCAN_LIMIT_TTL", 10*time.Minute),
		Prefix:      envStr("SCAN_LIMIT_PREFIX", "scanlimit"),
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillEvery <= 0 {
		cfg.RefillEvery = time.Second
	}
	// The bucket hash must outlive idle gaps between arrivals.
	if min := 5 * cfg.RefillEvery; cfg.TTL < min {
		cfg.TTL = min
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}
