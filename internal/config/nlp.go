package config

import "time"

// NLPConfig configures the external linguistic analyzer (enrichment path).
type NLPConfig struct {
	// BaseURL of the analyzer service, e.g. http://localhost:5001.
	// Empty disables enrichment entirely.
	BaseURL string `json:"base_url"`
	// RequestTimeoutMs bounds a single parse call.
	RequestTimeoutMs int `json:"request_timeout_ms"`
	// HealthTTLSec is how long a health verdict is cached before the
	// liveness probe is repeated.
	HealthTTLSec int `json:"health_ttl_sec"`
}

// DefaultNLPConfig returns sensible defaults.
func DefaultNLPConfig() NLPConfig {
	return NLPConfig{
		RequestTimeoutMs: 1500,
		HealthTTLSec:     15,
	}
}

// RequestTimeout returns the per-call timeout.
func (c NLPConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutMs == 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// HealthTTL returns the health verdict cache lifetime.
func (c NLPConfig) HealthTTL() time.Duration {
	if c.HealthTTLSec == 0 {
		return 15 * time.Second
	}
	return time.Duration(c.HealthTTLSec) * time.Second
}

// Enabled reports whether enrichment should be attempted at all.
func (c NLPConfig) Enabled() bool {
	return c.BaseURL != ""
}
