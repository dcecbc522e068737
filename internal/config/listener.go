package config

import "time"

// ListenerConfig configures recognition session supervision.
type ListenerConfig struct {
	// RestartDelayMs is the pause before restarting after a transient
	// recognition error or a normal session end.
	RestartDelayMs int `json:"restart_delay_ms"`
	// MaxConsecutiveErrors stops the supervisor after this many transient
	// failures in a row without a successful session. Zero means no limit.
	MaxConsecutiveErrors int `json:"max_consecutive_errors"`
}

// DefaultListenerConfig returns sensible defaults.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		RestartDelayMs: 250,
	}
}

// RestartDelay returns the restart backoff.
func (c ListenerConfig) RestartDelay() time.Duration {
	if c.RestartDelayMs == 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.RestartDelayMs) * time.Millisecond
}
