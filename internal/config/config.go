// Package config loads voicenav configuration from .voicenav/config.json.
// Every sub-config tolerates zero values: getters substitute defaults so a
// partial config file is always safe to run with.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration object.
type Config struct {
	Parser    ParserConfig    `json:"parser"`
	NLP       NLPConfig       `json:"nlp"`
	Injection InjectionConfig `json:"injection"`
	Session   SessionConfig   `json:"session"`
	Listener  ListenerConfig  `json:"listener"`
	Logging   LoggingConfig   `json:"logging"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
}

// Load reads config.json from the workspace, applying defaults for anything
// missing. A missing file is not an error: defaults apply.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".voicenav", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Parser:    DefaultParserConfig(),
		NLP:       DefaultNLPConfig(),
		Injection: DefaultInjectionConfig(),
		Session:   DefaultSessionConfig(),
		Listener:  DefaultListenerConfig(),
		Logging:   LoggingConfig{Level: "info"},
	}
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VOICENAV_NLP_URL"); v != "" {
		c.NLP.BaseURL = v
	}
	if v := os.Getenv("VOICENAV_DEBUGGER_URL"); v != "" {
		c.Injection.DebuggerURL = v
	}
	if v := os.Getenv("VOICENAV_SESSION_DB"); v != "" {
		c.Session.DBPath = v
	}
}

// Save writes the config back to the workspace.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".voicenav")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}
