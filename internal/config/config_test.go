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
	for _, key := range []string{
		"PORT", "DATA_DIR", "PUBLIC_URL", "HISTORY_DB", "DETECTOR_MODE", "DETECTOR_NOISE",
		"MODEL_PATH", "CLEANUP_SCHEDULE", "UPLOAD_RETENTION", "SHARE_TTL",
		"MAX_UPLOAD_MB", "RANDOM_SEED", "CONFIG_PATH",
	} {
		t.Setenv(key, "")
	}
	// Load looks for .env and config.yaml in the working directory
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, []int{5000, 8000, 3000}, cfg.Ports())
	assert.Equal(t, "synthetic", cfg.Detector.Mode)
	assert.False(t, cfg.Headless)
	assert.Equal(t, int64(100<<20), cfg.MaxUploadBytes())
	assert.Equal(t, 7*24*time.Hour, cfg.ShareTTLDuration())
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := `
port: 9090
data_dir: /srv/deepfake
history_db: /srv/deepfake/history.db
detector:
  mode: learned
  noise: gaussian
  seed: 42
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0644))
	t.Setenv("DATA_DIR", "/override")
	t.Setenv("MAX_UPLOAD_MB", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/override", cfg.DataDir)
	assert.Equal(t, "/srv/deepfake/history.db", cfg.HistoryDB)
	assert.Equal(t, "learned", cfg.Detector.Mode)
	assert.Equal(t, "gaussian", cfg.Detector.Noise)
	assert.Equal(t, int64(42), cfg.Detector.Seed)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	tomlBody := `
port = 7070
share_ttl = "48h"

[detector]
mode = "synthetic"
threshold = 0.7
`
	require.NoError(t, os.WriteFile(path, []byte(tomlBody), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, 48*time.Hour, cfg.ShareTTLDuration())
	assert.InDelta(t, 0.7, cfg.Detector.Threshold, 1e-9)
}

func TestPortEnvForcesHeadless(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Port)
	assert.True(t, cfg.Headless)
	assert.Equal(t, []int{8123, 8000, 3000}, cfg.Ports())
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("PORT", "not-a-port")
	_, err = Load("")
	assert.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Default()
	cfg.UploadRetention = "garbage"
	cfg.ShareTTL = "-1h"

	assert.Equal(t, DefaultUploadRetention, cfg.UploadRetentionDuration())
	assert.Equal(t, DefaultShareTTL, cfg.ShareTTLDuration())
}
