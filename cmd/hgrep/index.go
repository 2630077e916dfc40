package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/hgrep/internal/config"
	"github.com/standardbeagle/hgrep/internal/gitrepo"
	"github.com/standardbeagle/hgrep/internal/index"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the history index and save a snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Snapshot output path (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if output := c.String("output"); output != "" {
				cfg.Index.SnapshotPath = output
			}

			logger, err := newLogger(c)
			if err != nil {
				return err
			}
			defer logger.Sync()

			idx, err := buildIndex(cfg, logger)
			if err != nil {
				return err
			}

			if err := idx.Save(cfg.Index.SnapshotPath); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}

			fmt.Printf("Indexed %d commits across %d files -> %s\n",
				idx.CommitCount(), len(idx.FilePaths), cfg.Index.SnapshotPath)
			return nil
		},
	}
}

// buildIndex walks the repository history and finalizes the index. An
// indexing failure mid-walk still yields the consistent prefix.
func buildIndex(cfg config.Config, logger *zap.Logger) (*index.Index, error) {
	repo, err := gitrepo.Open(cfg.Repo.Path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	indexer := index.NewIndexer(logger)

	if err := indexer.IndexHistory(repo); err != nil {
		// The processed prefix stays consistent; report but keep what we
		// have so a partial snapshot can still serve.
		logger.Error("history walk stopped early", zap.Error(err))
	}

	idx, err := indexer.Build()
	if err != nil {
		return nil, err
	}

	logger.Info("index built",
		zap.Int("commits", idx.CommitCount()),
		zap.Int("files", len(idx.FilePaths)),
		zap.Duration("elapsed", time.Since(start)))
	return idx, nil
}

// loadOrBuildIndex prefers the snapshot and falls back to a fresh build.
func loadOrBuildIndex(cfg config.Config, logger *zap.Logger) (*index.Index, error) {
	idx, err := index.Load(cfg.Index.SnapshotPath)
	if err == nil {
		logger.Info("loaded index snapshot",
			zap.String("path", cfg.Index.SnapshotPath),
			zap.Int("commits", idx.CommitCount()))
		return idx, nil
	}

	logger.Info("snapshot unavailable, building index",
		zap.String("path", cfg.Index.SnapshotPath),
		zap.Error(err))
	return buildIndex(cfg, logger)
}
