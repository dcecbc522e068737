package config

// SessionConfig configures the scope activation store.
type SessionConfig struct {
	// DBPath is the sqlite file holding active scopes. Empty resolves to
	// <workspace>/.voicenav/sessions.db at startup.
	DBPath string `json:"db_path"`
}

// DefaultSessionConfig returns sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{}
}
