// Package config loads and validates the hgrep configuration: a TOML file
// (hgrep.toml) optionally overridden by a .hgrep.kdl in the repository root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	toml "github.com/pelletier/go-toml/v2"
	kdl "github.com/sblinch/kdl-go"

	"github.com/standardbeagle/hgrep/internal/errors"
)

type Config struct {
	Repo   Repo   `toml:"repo" kdl:"repo"`
	Index  Index  `toml:"index" kdl:"index"`
	Server Server `toml:"server" kdl:"server"`
	Search Search `toml:"search" kdl:"search"`
	Watch  Watch  `toml:"watch" kdl:"watch"`
}

type Repo struct {
	// Path is the repository to index and serve.
	Path string `toml:"path" kdl:"path"`
}

type Index struct {
	// SnapshotPath is where the finalized index dump lives.
	SnapshotPath string `toml:"snapshot_path" kdl:"snapshot-path"`
}

type Server struct {
	Listen      string `toml:"listen" kdl:"listen"`
	MaxPageSize int    `toml:"max_page_size" kdl:"max-page-size"`
}

type Search struct {
	// CacheSize bounds the raw-result LRU (number of distinct queries).
	CacheSize int `toml:"cache_size" kdl:"cache-size"`
	// Workers sizes the materialization pool; 0 means one per CPU core.
	Workers int `toml:"workers" kdl:"workers"`
}

type Watch struct {
	Enabled    bool     `toml:"enabled" kdl:"enabled"`
	DebounceMs int      `toml:"debounce_ms" kdl:"debounce-ms"`
	Ignore     []string `toml:"ignore" kdl:"ignore"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Repo:  Repo{Path: "."},
		Index: Index{SnapshotPath: ".hgrep.idx"},
		Server: Server{
			Listen:      "127.0.0.1:8399",
			MaxPageSize: 100,
		},
		Search: Search{
			CacheSize: 64,
			Workers:   0,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: 2000,
			Ignore:     []string{".git/**", "**/*.idx"},
		},
	}
}

// Load reads the TOML config at path over the defaults, then applies a
// .hgrep.kdl override from the repository directory when one exists. A
// missing TOML file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults apply.
		case err != nil:
			return cfg, errors.NewConfigError("file", path, err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.NewConfigError("file", path, err)
			}
		}
	}

	kdlPath := filepath.Join(cfg.Repo.Path, ".hgrep.kdl")
	if data, err := os.ReadFile(kdlPath); err == nil {
		if err := kdl.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.NewConfigError("file", kdlPath, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks bounds.
func (c *Config) Validate() error {
	if c.Repo.Path == "" {
		return errors.NewConfigError("repo.path", "",
			fmt.Errorf("repository path must not be empty"))
	}
	if c.Server.MaxPageSize <= 0 {
		return errors.NewConfigError("server.max_page_size",
			fmt.Sprintf("%d", c.Server.MaxPageSize),
			fmt.Errorf("must be positive"))
	}
	if c.Search.CacheSize <= 0 {
		return errors.NewConfigError("search.cache_size",
			fmt.Sprintf("%d", c.Search.CacheSize),
			fmt.Errorf("must be positive"))
	}
	if c.Search.Workers < 0 {
		return errors.NewConfigError("search.workers",
			fmt.Sprintf("%d", c.Search.Workers),
			fmt.Errorf("must not be negative"))
	}
	if c.Watch.DebounceMs < 0 {
		return errors.NewConfigError("watch.debounce_ms",
			fmt.Sprintf("%d", c.Watch.DebounceMs),
			fmt.Errorf("must not be negative"))
	}
	return nil
}

// WorkerCount resolves the effective materialization pool size.
func (c *Config) WorkerCount() int {
	if c.Search.Workers > 0 {
		return c.Search.Workers
	}
	return runtime.NumCPU()
}
