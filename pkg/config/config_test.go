package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 150, cfg.VirtualNodes)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(512*1024*1024), cfg.MaxMemoryBytes)
	assert.Equal(t, 5, cfg.MaxRestartAttempts)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().WorkerCount, cfg.WorkerCount)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MOLTPOOL_WORKER_COUNT", "8")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.WorkerCount)
}

func TestLoadMissingFileIsNotFatal(t *testing.T) {
	cfg, err := Load("/nonexistent/path/moltpool.yaml")
	require.NoError(t, err)
	assert.Equal(t, Default().WorkerCount, cfg.WorkerCount)
}
