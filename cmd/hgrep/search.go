package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/hgrep/internal/search"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Query the index and print matches with their history",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "regex",
				Aliases: []string{"e"},
				Usage:   "Treat the query as a regular expression",
			},
			&cli.IntFlag{
				Name:    "max",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results",
				Value:   20,
			},
		},
		Action: func(c *cli.Context) error {
			query := c.Args().First()
			if query == "" {
				return fmt.Errorf("usage: hgrep search [-e] QUERY")
			}

			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
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

			mode := search.ModePlain
			if c.Bool("regex") {
				mode = search.ModeRegex
			}

			hits, err := coordinator.Search(context.Background(), search.Request{
				Query:    query,
				Mode:     mode,
				Page:     0,
				PageSize: c.Int("max"),
			})
			if err != nil {
				return err
			}

			printHits(hits)
			return nil
		},
	}
}

func printHits(hits []*search.SearchHit) {
	found := 0
	for _, hit := range hits {
		if hit == nil {
			continue
		}
		found++

		fmt.Printf("%s\n", hit.FilePath)
		printDetail("  first", &hit.FirstMatch)
		if hit.LastMatch != nil {
			printDetail("  last ", hit.LastMatch)
		}
		fmt.Println()
	}

	if found == 0 {
		fmt.Println("No matches.")
	}
}

func printDetail(label string, detail *search.MatchDetail) {
	fmt.Printf("%s %s %s  %s\n", label,
		detail.CommitSHA[:10], detail.CommitDate, detail.CommitSummary)
	for _, line := range detail.Lines {
		marker := " "
		if len(line.Highlights) > 0 {
			marker = ">"
		}
		fmt.Printf("    %s %5d | %s\n", marker, line.LineNumber, line.Content)
	}
}
