package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/dataset"
)

var (
	cleanPosts  string
	cleanOutput string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Filter and clean a merged posts CSV",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanPosts, "posts", "p", "posts.csv", "merged posts CSV")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "clean.csv", "output CSV path")
}

func pipelineOptions() dataset.Options {
	return dataset.Options{
		MaxPostWords:         cfg.Filter.MaxPostWords,
		TitleOverlapFactor:   cfg.Filter.TitleOverlapFactor,
		FailedSentinel:       cfg.Filter.FailedSentinel,
		BadTitlePattern:      cfg.Filter.BadTitlePattern,
		BadPostPattern:       cfg.Filter.BadPostPattern,
		PostStringsToRemove:  cfg.Clean.PostStringsToRemove,
		NewspaperNames:       cfg.Clean.NewspaperNames,
		TitleStringsToRemove: cfg.Clean.TitleStringsToRemove,
	}
}

func runClean(_ *cobra.Command, _ []string) error {
	defer syncLogger()

	ds, err := dataset.ReadCSV(cleanPosts)
	if err != nil {
		return exitError(ExitInvalidInput, "Error reading %s: %v", cleanPosts, err)
	}
	before := len(ds.Records)

	opts := pipelineOptions()
	filtered, err := dataset.ApplyFilters(*ds, opts)
	if err != nil {
		return exitError(ExitConfigError, "Error building filters: %v", err)
	}
	cleaned := dataset.ApplyCleaning(filtered, opts)

	if err := dataset.WriteCSV(cleanOutput, &cleaned); err != nil {
		return exitError(ExitFileIOError, "Error writing %s: %v", cleanOutput, err)
	}
	zap.L().Info("cleaned dataset",
		zap.Int("rows_in", before),
		zap.Int("rows_out", len(cleaned.Records)),
		zap.String("path", cleanOutput),
	)
	return nil
}
