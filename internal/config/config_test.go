package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MEM0_API_KEY", "MEM0_BASE_URL", "MEM0_USER_ID", "PERPLEXITY_API_KEY",
		"BRAIN_JAR_LOG", "BRAIN_JAR_ADDR", "BRAIN_JAR_DB", "BRAIN_JAR_REMOTE_TIMEOUT",
		"BRAIN_JAR_AUTO_SUMMARIZE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "global", cfg.DefaultScope)
	assert.True(t, cfg.AutoSummarize)
	assert.Equal(t, 12, cfg.Summary.ActivityThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Summary.MinInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Summary.MaxInterval)
	assert.Equal(t, filepath.Join(dir, "local.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join(dir, "summary-state.json"), cfg.StatePath)
	assert.False(t, cfg.RemoteEnabled())
	assert.Empty(t, cfg.Source())
}

func TestLoadLegacyJSON(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	legacy := `{
  "mem0_api_key": "m0-key",
  "default_scope": "project:demo",
  "auto_summarize": false
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(legacy), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "m0-key", cfg.Mem0APIKey)
	assert.Equal(t, "project:demo", cfg.DefaultScope)
	assert.False(t, cfg.AutoSummarize)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, 12, cfg.Summary.ActivityThreshold, "unset keys keep defaults")
}

func TestLoadYAMLWithDurations(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	doc := `
remote_timeout: 2s
summary:
  activity_threshold: 5
  min_interval: 1h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 5, cfg.Summary.ActivityThreshold)
	assert.Equal(t, time.Hour, cfg.Summary.MinInterval)
	assert.Equal(t, 7*24*time.Hour, cfg.Summary.MaxInterval)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("mem0_api_key: from-file\n"), 0o600))
	t.Setenv("MEM0_API_KEY", "from-env")
	t.Setenv("BRAIN_JAR_REMOTE_TIMEOUT", "750ms")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Mem0APIKey)
	assert.Equal(t, 750*time.Millisecond, cfg.RemoteTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Default(t.TempDir())
	cfg.Summary.ActivityThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg = Default(t.TempDir())
	cfg.Summary.MinInterval = 10 * 24 * time.Hour
	assert.Error(t, cfg.Validate())

	cfg = Default(t.TempDir())
	cfg.DefaultScope = " "
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Mem0APIKey = "saved"
	cfg.Summary.ActivityThreshold = 20

	path, err := cfg.Save()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Mem0APIKey)
	assert.Equal(t, 20, loaded.Summary.ActivityThreshold)
	assert.Equal(t, path, loaded.Source())
}
