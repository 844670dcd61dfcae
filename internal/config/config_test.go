package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityRadiusClamped(t *testing.T) {
	SetVisibilityRadius(1)
	assert.Equal(t, 2, GetVisibilityRadius())

	SetVisibilityRadius(100)
	assert.Equal(t, 32, GetVisibilityRadius())

	SetVisibilityRadius(8)
	assert.Equal(t, 8, GetVisibilityRadius())
	assert.Equal(t, 8+UnloadBuffer, GetUnloadRadius())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worldify.yaml")
	data := "server_url: ws://example:9000/world\nvisibility_radius: 12\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://example:9000/world", cfg.ServerURL)
	assert.Equal(t, 12, cfg.VisibilityRadius)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset fields keep defaults.
	assert.Equal(t, Defaults().WorkerCount, cfg.WorkerCount)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("visibility_radius: [1, 2\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
