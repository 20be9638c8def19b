package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webcal/internal/config"
)

func TestLoadFirstRunCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "#3b82f6", cfg.DefaultColor)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := "listen: \"0.0.0.0:9000\"\ndata_file: \"/var/lib/webcal/events.json\"\nbackup:\n  cron: \"0 3 * * *\"\n"
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "/var/lib/webcal/events.json", cfg.DataFile)
	assert.Equal(t, "0 3 * * *", cfg.Backup.Cron)

	// Unset fields are normalized.
	assert.Equal(t, "#3b82f6", cfg.DefaultColor)
	assert.Equal(t, 365, cfg.ImportHorizonDays)
	assert.Equal(t, filepath.Join("/var/lib/webcal", "backups"), cfg.Backup.Dir)
	assert.Equal(t, 7, cfg.Backup.Keep)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Listen = "127.0.0.1:9999"
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "cal", Password: "secret"}
	require.NoError(t, config.Save(path, cfg))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", loaded.Listen)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "cal", loaded.BasicAuth.Username)
}

func TestNormalizeAnchorsPathsToDataFile(t *testing.T) {
	cfg := &config.Config{DataFile: "/srv/cal/events.json"}
	cfg.Normalize()

	assert.Equal(t, filepath.Join("/srv/cal", "backups"), cfg.Backup.Dir)
	assert.Equal(t, filepath.Join("/srv/cal", "preview.png"), cfg.Snapshot.Path)
	assert.Equal(t, 1280, cfg.Snapshot.Width)
	assert.Equal(t, 960, cfg.Snapshot.Height)
}
