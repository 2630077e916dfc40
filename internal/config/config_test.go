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
	assert.Equal(t, ".", cfg.Repo.Path)
	assert.Positive(t, cfg.WorkerCount())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Listen, cfg.Server.Listen)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hgrep.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[repo]
path = "`+dir+`"

[server]
listen = "0.0.0.0:9000"
max_page_size = 25

[search]
cache_size = 8
workers = 3

[watch]
enabled = true
debounce_ms = 500
ignore = ["*.log"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Repo.Path)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, 25, cfg.Server.MaxPageSize)
	assert.Equal(t, 8, cfg.Search.CacheSize)
	assert.Equal(t, 3, cfg.WorkerCount())
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, []string{"*.log"}, cfg.Watch.Ignore)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hgrep.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty repo path", func(c *Config) { c.Repo.Path = "" }},
		{"zero page size", func(c *Config) { c.Server.MaxPageSize = 0 }},
		{"zero cache", func(c *Config) { c.Search.CacheSize = 0 }},
		{"negative workers", func(c *Config) { c.Search.Workers = -1 }},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
