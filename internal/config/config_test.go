package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "codespace-pro-project", cfg.Storage.Slot)
	assert.Equal(t, 10, cfg.Preview.CacheSize)
	assert.Equal(t, 300, cfg.Preview.DebounceMs)
	assert.True(t, cfg.Format.HasPlugin(PluginGofumpt))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"empty slot", func(c *Config) { c.Storage.Slot = " " }},
		{"tiny font", func(c *Config) { c.Editor.FontSize = 2 }},
		{"zero cache", func(c *Config) { c.Preview.CacheSize = 0 }},
		{"unknown plugin", func(c *Config) { c.Format.Plugins = []string{"prettier"} }},
		{"bad addr", func(c *Config) { c.Viewer.HTTPAddr = "nope" }},
		{"bad log level", func(c *Config) { c.Viewer.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureCreatesThenLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg, created, err := Ensure(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Default().Storage, cfg.Storage)

	_, created, err = Ensure(path)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLoadStripsBOMAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"storage":{"driver":"file"}}`)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "codespace-pro-project", cfg.Storage.Slot)
}
