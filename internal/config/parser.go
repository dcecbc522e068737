package config

import "time"

// ParserConfig tunes the intent parser and the follow-up tracker.
type ParserConfig struct {
	// AcceptThreshold is the minimum confidence the dispatcher accepts.
	AcceptThreshold float64 `json:"accept_threshold"`
	// FollowUpExpirySec is how long a disambiguation context stays armed.
	FollowUpExpirySec int `json:"followup_expiry_sec"`
	// VocabularyPath points at an optional yaml overlay extending the
	// built-in synonym tables. Watched for changes when set.
	VocabularyPath string `json:"vocabulary_path"`
}

// DefaultParserConfig returns sensible defaults.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		AcceptThreshold:   0.3,
		FollowUpExpirySec: 30,
	}
}

// GetAcceptThreshold returns the acceptance threshold.
func (c ParserConfig) GetAcceptThreshold() float64 {
	if c.AcceptThreshold == 0 {
		return 0.3
	}
	return c.AcceptThreshold
}

// FollowUpExpiry returns the follow-up context lifetime.
func (c ParserConfig) FollowUpExpiry() time.Duration {
	if c.FollowUpExpirySec == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FollowUpExpirySec) * time.Second
}
