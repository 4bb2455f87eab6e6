package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every DRAWIO_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DRAWIO_TRANSPORT", "DRAWIO_LISTEN_ADDR", "DRAWIO_DB_PATH", "DRAWIO_LOG_LEVEL",
		"DRAWIO_SAVE_DIR", "DRAWIO_TEMP_DIR", "DRAWIO_OPEN_VIEWER", "DRAWIO_STRICT_CONNECTIONS",
		"DRAWIO_DIAGRAM_TTL", "DRAWIO_REAP_SCHEDULE", "DRAWIO_RESOURCE_SCHEME",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, ":4100", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.OpenViewer)
	assert.False(t, cfg.StrictConnections)
	assert.Equal(t, time.Hour, cfg.TTL())
	assert.Equal(t, "@every 10m", cfg.ReapSchedule)
	assert.Equal(t, "drawio", cfg.ResourceScheme)
	assert.Equal(t, "drawio.db", filepath.Base(cfg.DBPath))
}

func TestLoadConfig_Layers(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"transport": "http",
		"listen_addr": ":9000",
		"log_level": "debug",
		"diagram_ttl": "30m"
	}`), 0o644))

	t.Setenv("DRAWIO_LISTEN_ADDR", ":9100")
	t.Setenv("DRAWIO_STRICT_CONNECTIONS", "true")
	t.Setenv("DRAWIO_OPEN_VIEWER", "0")

	cfg, err := loadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, ":9100", cfg.ListenAddr, "env overrides settings.json")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.TTL())
	assert.True(t, cfg.StrictConnections)
	assert.False(t, cfg.OpenViewer)
}

func TestLoadConfig_EmptyDBPathDisablesSaveLog(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAWIO_DB_PATH", "")

	cfg, err := loadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.DBPath)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	_, err := loadConfigFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad transport", func(c *Config) { c.Transport = "grpc" }, "transport must be one of"},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, "log_level must be one of"},
		{"zero ttl", func(c *Config) { c.DiagramTTL = "0s" }, "diagram_ttl must be a positive duration"},
		{"garbage ttl", func(c *Config) { c.DiagramTTL = "soon" }, "diagram_ttl"},
		{"bad schedule", func(c *Config) { c.ReapSchedule = "every now and then" }, "reap_schedule is not a valid cron schedule"},
		{"bad scheme", func(c *Config) { c.ResourceScheme = "Draw IO" }, "resource_scheme is not a valid URI scheme"},
		{"http needs addr", func(c *Config) { c.Transport = "http"; c.ListenAddr = "" }, "listen_addr is required"},
		{"stdio ignores addr", func(c *Config) { c.ListenAddr = "" }, ""},
		{"missing save dir", func(c *Config) { c.SaveDir = "" }, "save_dir is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := validateConfig(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestWriteSettings(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested")

	cfg := defaultConfig()
	cfg.StrictConnections = true
	cfg.DiagramTTL = "2h"

	path, err := writeSettings(dir, cfg)
	require.NoError(t, err)

	loaded, err := loadConfigFrom(path)
	require.NoError(t, err)
	assert.True(t, loaded.StrictConnections)
	assert.Equal(t, 2*time.Hour, loaded.TTL())
}
