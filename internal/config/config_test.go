package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundog-ai/chronicle/internal/event"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, 30, cfg.RetentionDays)
	for _, cat := range event.Categories() {
		cc := cfg.Category(cat)
		assert.True(t, cc.Enabled, "category %s", cat)
		min, err := cc.MinLevel()
		require.NoError(t, err)
		assert.Equal(t, event.LevelInfo, min)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CHRONICLE_LOG_DIR", "/var/log/chronicle")
	t.Setenv("CHRONICLE_RETENTION_DAYS", "14")
	t.Setenv("CHRONICLE_LOG_TOOLS", "false")
	t.Setenv("CHRONICLE_SECURITY_LOG_LEVEL", "WARNING")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/log/chronicle", cfg.LogDir)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.False(t, cfg.Tools.Enabled)
	assert.Equal(t, "WARNING", cfg.Security.Level)
	assert.True(t, cfg.Agents.Enabled)
}

func TestLoadRetentionAlias(t *testing.T) {
	t.Setenv("CHRONICLE_MAX_LOG_FILES", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.RetentionDays)
}

func TestLoadRetentionAliasPrecedence(t *testing.T) {
	t.Setenv("CHRONICLE_MAX_LOG_FILES", "10")
	t.Setenv("CHRONICLE_RETENTION_DAYS", "21")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.RetentionDays)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "retention not a number", key: "CHRONICLE_RETENTION_DAYS", value: "forever"},
		{name: "retention below one", key: "CHRONICLE_RETENTION_DAYS", value: "0"},
		{name: "enable not a bool", key: "CHRONICLE_LOG_AGENTS", value: "maybe"},
		{name: "unknown level", key: "CHRONICLE_TOOL_LOG_LEVEL", value: "LOUD"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronicle.yaml")
	data := `
log_dir: /srv/logs
retention_days: 5
tools:
  enabled: false
  level: INFO
security:
  enabled: true
  level: WARNING
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/logs", cfg.LogDir)
	assert.Equal(t, 5, cfg.RetentionDays)
	assert.False(t, cfg.Tools.Enabled)
	assert.Equal(t, "WARNING", cfg.Security.Level)
	// Categories the file never mentions keep their defaults.
	assert.True(t, cfg.Agents.Enabled)
	assert.Equal(t, "INFO", cfg.Agents.Level)
}

func TestLoadFileEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronicle.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retention_days: 5\n"), 0o644))
	t.Setenv("CHRONICLE_RETENTION_DAYS", "9")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.RetentionDays)
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFileMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_dir: [unterminated"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
