package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.Parser.GetAcceptThreshold())
	assert.Equal(t, 2000, cfg.Injection.CooldownMs)
	assert.False(t, cfg.NLP.Enabled())
}

func TestLoad_PartialFileKeepsGetterDefaults(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".voicenav")
	require.NoError(t, os.MkdirAll(dir, 0755))
	body := `{"nlp":{"base_url":"http://localhost:5001"},"injection":{"cooldown_ms":500}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.True(t, cfg.NLP.Enabled())
	assert.Equal(t, "http://localhost:5001", cfg.NLP.BaseURL)
	assert.Equal(t, 500, cfg.Injection.CooldownMs)
	// Zero values fall back through getters
	assert.Equal(t, int64(30), int64(cfg.Parser.FollowUpExpiry().Seconds()))
	assert.Equal(t, int64(1500), cfg.NLP.RequestTimeout().Milliseconds())
}

func TestEnvOverrides(t *testing.T) {
	t.Run("VOICENAV_NLP_URL wins over file", func(t *testing.T) {
		t.Setenv("VOICENAV_NLP_URL", "http://override:9000")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "http://override:9000", cfg.NLP.BaseURL)
	})

	t.Run("VOICENAV_SESSION_DB sets store path", func(t *testing.T) {
		t.Setenv("VOICENAV_SESSION_DB", "/tmp/x.db")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "/tmp/x.db", cfg.Session.DBPath)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	ws := t.TempDir()
	cfg := DefaultConfig()
	cfg.NLP.BaseURL = "http://localhost:5001"
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, cfg.NLP.BaseURL, loaded.NLP.BaseURL)
}
