package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_OverlaysValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	data := `{
		"server_base_url": "http://10.0.0.1:8080",
		"online_check_interval": "5s",
		"sync_interval": "2m",
		"max_retries": 4
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"cmd", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "http://10.0.0.1:8080", cfg.ServerBaseURL)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 2*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 4, cfg.MaxRetries)
	// untouched fields keep their defaults
	assert.Equal(t, "daykeeper.db", cfg.DatabasePath)
	assert.Equal(t, time.Second, cfg.BaseRetryDelay)
}

func TestParseJson_NoFileFlagIsNoop(t *testing.T) {
	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = []string{"cmd"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerBaseURL)
}
