package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.yaml")
	content := `env: test
storage_path: /tmp/client.db
log:
  level: debug
  format: json
backend:
  base_url: http://example.test
  timeout: 5
sync:
  probe_interval: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "test", cfg.Env)
	require.Equal(t, "/tmp/client.db", cfg.StoragePath)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "http://example.test", cfg.Backend.BaseURL)
	require.Equal(t, 5, cfg.Backend.Timeout)
	require.Equal(t, 10, cfg.Sync.ProbeInterval)
	// untouched sections fall back to defaults
	require.Equal(t, 1, cfg.Sync.TimerTick)
	require.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env.test")
	t.Setenv("SYNC_PROBE_INTERVAL", "7")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://env.test", cfg.Backend.BaseURL)
	require.Equal(t, 7, cfg.Sync.ProbeInterval)
	require.Equal(t, "local", cfg.Env)
}

func TestLoadConfigRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("ENV", "production")

	_, err := LoadConfig("")
	require.Error(t, err)
}
