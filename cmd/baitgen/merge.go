package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/collector"
	"github.com/byteowlz/baitgen/internal/dataset"
)

var (
	mergeDataDir  string
	mergeArticles string
	mergeOutput   string
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Join post texts with their scraped articles",
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeDataDir, "data-dir", "d", "", "directory of post JSON files (default: scrape.data_dir)")
	mergeCmd.Flags().StringVarP(&mergeArticles, "articles", "a", "articles.csv", "articles CSV written by scrape")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "posts.csv", "output CSV path")
}

func runMerge(cmd *cobra.Command, _ []string) error {
	defer syncLogger()

	dataDir := cfg.Scrape.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir = mergeDataDir
	}

	posts, err := collector.LoadPosts(dataDir)
	if err != nil {
		return exitError(ExitInvalidInput, "Error loading posts from %s: %v", dataDir, err)
	}
	articles, err := dataset.ReadArticlesCSV(mergeArticles)
	if err != nil {
		return exitError(ExitInvalidInput, "Error reading %s: %v", mergeArticles, err)
	}

	pairs := make([]dataset.Post, 0, len(posts))
	for _, p := range posts {
		pairs = append(pairs, dataset.Post{Link: p.ExtLink, Text: p.Bait})
	}

	merged := dataset.Merge(pairs, articles, cfg.Filter.FailedSentinel)
	if err := dataset.WriteCSV(mergeOutput, merged); err != nil {
		return exitError(ExitFileIOError, "Error writing %s: %v", mergeOutput, err)
	}
	zap.L().Info("merged posts",
		zap.Int("posts", len(posts)),
		zap.Int("articles", len(articles)),
		zap.String("path", mergeOutput),
	)
	return nil
}
