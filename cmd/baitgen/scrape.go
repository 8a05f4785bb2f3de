package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/browser"
	"github.com/byteowlz/baitgen/internal/collector"
	"github.com/byteowlz/baitgen/internal/extractor"
	"github.com/byteowlz/baitgen/internal/fetcher"
	"github.com/byteowlz/baitgen/internal/store"
	"github.com/byteowlz/baitgen/internal/urlnorm"
)

var (
	scrapeDataDir string
	scrapeOutput  string
	scrapeNum     int
	scrapeNoCache bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the articles linked from a directory of post JSON files",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeDataDir, "data-dir", "d", "", "directory of post JSON files (default: scrape.data_dir)")
	scrapeCmd.Flags().StringVarP(&scrapeOutput, "output", "o", "articles.csv", "output CSV path")
	scrapeCmd.Flags().IntVarP(&scrapeNum, "num-links", "n", 0, "number of links to process, at least 1 (default: scrape.num_links)")
	scrapeCmd.Flags().BoolVar(&scrapeNoCache, "no-cache", false, "ignore the article cache")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	defer syncLogger()

	dataDir := cfg.Scrape.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir = scrapeDataDir
	}
	numLinks := cfg.Scrape.NumLinks
	if cmd.Flags().Changed("num-links") {
		numLinks = scrapeNum
	}
	if numLinks < 1 {
		return exitError(ExitInvalidInput, "Error: number of links must be at least 1, got %d", numLinks)
	}

	links, err := collector.LoadLinks(dataDir, numLinks)
	if err != nil {
		return exitError(ExitInvalidInput, "Error loading posts from %s: %v", dataDir, err)
	}
	zap.L().Info("loaded links", zap.String("dir", dataDir), zap.Int("links", len(links)))

	fetchOpts := fetcher.FetchOptions{
		Timeout:      networkTimeout(),
		UserAgent:    cfg.Network.UserAgent,
		BrowserAgent: cfg.Network.BrowserAgent,
		Delay:        time.Duration(cfg.Network.Delay * float64(time.Second)),
	}
	if cfg.Network.CookieBrowser != "" {
		fetchOpts.Cookies = browser.NewCookieExtractor(browser.BrowserType(cfg.Network.CookieBrowser))
	}
	static := fetcher.NewSimpleFetcher(fetchOpts)

	c := &collector.Collector{
		Normalizer: urlnorm.New(cfg.Network.Shorteners, networkTimeout()),
		Registry:   extractor.NewRegistry(extractor.DefaultRules(static)...),
		NewBrowser: func() (collector.Browser, error) {
			return fetcher.NewBrowserSession(fetcher.BrowserOptions{
				Headless:     cfg.Browser.Headless,
				ExecPath:     cfg.Browser.ExecPath,
				UserAgent:    cfg.Network.UserAgent,
				Timeout:      time.Duration(cfg.Browser.JSTimeout) * time.Second,
				WaitSelector: cfg.Browser.WaitSelector,
			}), nil
		},
		CacheTTL: time.Duration(cfg.Cache.TTLHours) * time.Hour,
	}

	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Cache.Path != "" && !scrapeNoCache {
		cache, err := store.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return exitError(ExitFileIOError, "Error opening article cache: %v", err)
		}
		defer cache.Close()
		if err := cache.Migrate(ctx); err != nil {
			return exitError(ExitFileIOError, "Error migrating article cache: %v", err)
		}
		if n, err := cache.DeleteExpired(ctx); err == nil && n > 0 {
			zap.L().Debug("purged expired articles", zap.Int("rows", n))
		}
		c.Cache = cache
	}

	results, failures, err := c.Collect(ctx, links)
	if err != nil {
		if len(results) == 0 {
			return exitError(ExitNetworkError, "Error collecting articles: %v", err)
		}
		zap.L().Warn("collection stopped early", zap.Error(err), zap.Int("articles", len(results)))
	}

	if err := collector.WriteArticlesCSV(scrapeOutput, results); err != nil {
		return exitError(ExitFileIOError, "Error writing %s: %v", scrapeOutput, err)
	}
	zap.L().Info("wrote articles",
		zap.String("path", scrapeOutput),
		zap.Int("articles", len(results)),
		zap.Int("failures", len(failures)),
	)

	if err != nil {
		return exitError(ExitPartialError, "Collection interrupted after %d articles", len(results))
	}
	return nil
}
