package config

import "time"

// InjectionConfig configures the browser manager and injection orchestrator.
type InjectionConfig struct {
	// DebuggerURL connects to an already-running Chrome. Empty launches one.
	DebuggerURL string `json:"debugger_url"`
	// Headless controls launched-Chrome visibility.
	Headless bool `json:"headless"`
	// CooldownMs is the dedup window: a page handle injected within this
	// window is not injected again.
	CooldownMs int `json:"cooldown_ms"`
	// RecordTTLMs is how long an injection record outlives its last use
	// before garbage collection.
	RecordTTLMs int `json:"record_ttl_ms"`
	// NavigationTimeoutMs bounds page navigation calls.
	NavigationTimeoutMs int `json:"navigation_timeout_ms"`
}

// DefaultInjectionConfig returns sensible defaults.
func DefaultInjectionConfig() InjectionConfig {
	return InjectionConfig{
		CooldownMs:          2000,
		RecordTTLMs:         6000,
		NavigationTimeoutMs: 30000,
	}
}

// Cooldown returns the injection dedup window.
func (c InjectionConfig) Cooldown() time.Duration {
	if c.CooldownMs == 0 {
		return 2 * time.Second
	}
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// RecordTTL returns the injection record lifetime.
func (c InjectionConfig) RecordTTL() time.Duration {
	if c.RecordTTLMs == 0 {
		return 6 * time.Second
	}
	return time.Duration(c.RecordTTLMs) * time.Millisecond
}

// NavigationTimeout returns the navigation timeout.
func (c InjectionConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}
