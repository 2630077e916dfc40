package main

import (
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/hgrep/internal/config"
	"github.com/standardbeagle/hgrep/internal/gitrepo"
	"github.com/standardbeagle/hgrep/internal/index"
	"github.com/standardbeagle/hgrep/internal/search"
	"github.com/standardbeagle/hgrep/internal/server"
	"github.com/standardbeagle/hgrep/internal/watch"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Listen address (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-index when the repository changes",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if listen := c.String("listen"); listen != "" {
				cfg.Server.Listen = listen
			}
			if c.Bool("watch") {
				cfg.Watch.Enabled = true
			}

			logger, err := newLogger(c)
			if err != nil {
				return err
			}
			defer logger.Sync()

			idx, err := loadOrBuildIndex(cfg, logger)
			if err != nil {
				return err
			}

			coordinator, err := newCoordinator(cfg, idx, logger)
			if err != nil {
				return err
			}

			srv := server.New(coordinator, cfg.Server.MaxPageSize, logger)

			if cfg.Watch.Enabled {
				watcher, err := startWatcher(cfg, srv, logger)
				if err != nil {
					return err
				}
				defer watcher.Close()
			}

			return srv.Run(cfg.Server.Listen)
		},
	}
}

func newCoordinator(cfg config.Config, idx *index.Index, logger *zap.Logger) (*search.Coordinator, error) {
	pool, err := gitrepo.NewPool(cfg.Repo.Path, idx, cfg.WorkerCount())
	if err != nil {
		return nil, err
	}
	return search.NewCoordinator(idx, pool, cfg.Search.CacheSize, logger)
}

// startWatcher rebuilds the index after each quiet period and swaps it into
// the server. The rebuild walks the full history: commits are cheap to
// replay compared to keeping incremental state consistent under arbitrary
// working-tree changes.
func startWatcher(cfg config.Config, srv *server.Server, logger *zap.Logger) (*watch.Watcher, error) {
	ignore := watch.NewIgnoreChecker(cfg.Repo.Path, cfg.Watch.Ignore)
	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond

	watcher, err := watch.New(ignore, debounce, func(paths []string) {
		logger.Info("rebuilding index", zap.Int("changed_paths", len(paths)))

		idx, err := buildIndex(cfg, logger)
		if err != nil {
			logger.Error("re-index failed", zap.Error(err))
			return
		}

		coordinator, err := newCoordinator(cfg, idx, logger)
		if err != nil {
			logger.Error("re-index coordinator failed", zap.Error(err))
			return
		}

		srv.Swap(coordinator)
		logger.Info("index swapped", zap.Int("commits", idx.CommitCount()))
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := watcher.Start(cfg.Repo.Path); err != nil {
		return nil, err
	}
	return watcher, nil
}
