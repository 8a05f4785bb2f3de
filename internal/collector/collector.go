// Package collector turns post links into extracted articles, one link at a
// time, sharing a single browser session across the run.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/extractor"
	"github.com/byteowlz/baitgen/internal/fetcher"
	"github.com/byteowlz/baitgen/internal/store"
)

type URLNormalizer interface {
	Normalize(ctx context.Context, rawURL string) (string, error)
}

type ArticleCache interface {
	GetArticle(ctx context.Context, url string) (*store.Article, error)
	PutArticle(ctx context.Context, a store.Article, ttl time.Duration) error
}

// Browser is the session shared by every link of a run.
type Browser interface {
	fetcher.Renderer
	Close() error
}

// Failure records a link that was dropped and why.
type Failure struct {
	Link string
	URL  string
	Err  error
}

type Collector struct {
	Normalizer URLNormalizer
	Registry   *extractor.Registry
	// NewBrowser opens the shared session. Nil means no browser fallback.
	NewBrowser func() (Browser, error)
	// Cache is optional.
	Cache    ArticleCache
	CacheTTL time.Duration
}

// Collect processes links in order and returns the extracted articles in the
// same order. Links that fail normalization or extraction are logged and
// reported in the failure list; links no publisher recognizes are skipped.
// The returned error is non-nil only when the browser cannot be started or
// ctx is cancelled; results gathered so far are still returned.
func (c *Collector) Collect(ctx context.Context, links []string) ([]extractor.Result, []Failure, error) {
	var browser Browser
	if c.NewBrowser != nil {
		b, err := c.NewBrowser()
		if err != nil {
			return nil, nil, eris.Wrap(err, "start browser session")
		}
		browser = b
		defer func() {
			if err := browser.Close(); err != nil {
				zap.L().Warn("failed to close browser session", zap.Error(err))
			}
		}()
	}

	var (
		results  []extractor.Result
		failures []Failure
		skipped  int
	)
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return results, failures, err
		}

		url, err := c.Normalizer.Normalize(ctx, link)
		if err != nil {
			zap.L().Warn("failed to normalize link", zap.String("url", link), zap.Error(err))
			failures = append(failures, Failure{Link: link, URL: link, Err: err})
			continue
		}

		res, err := c.extract(ctx, url, browser)
		if errors.Is(err, extractor.ErrUnrecognizedPublisher) {
			zap.L().Debug("no publisher for link, skipping", zap.String("url", url))
			skipped++
			continue
		}
		if err != nil {
			zap.L().Warn("failed to scrape article", zap.String("url", url), zap.Error(err))
			failures = append(failures, Failure{Link: link, URL: url, Err: err})
			continue
		}

		res.Link = link
		results = append(results, *res)
	}

	zap.L().Info("collected articles",
		zap.Int("links", len(links)),
		zap.Int("articles", len(results)),
		zap.Int("failed", len(failures)),
		zap.Int("skipped", skipped),
	)
	return results, failures, nil
}

func (c *Collector) extract(ctx context.Context, url string, browser fetcher.Renderer) (*extractor.Result, error) {
	ex, ok := c.Registry.Lookup(url)
	if !ok {
		return nil, extractor.ErrUnrecognizedPublisher
	}

	if c.Cache != nil {
		cached, err := c.Cache.GetArticle(ctx, url)
		if err != nil {
			zap.L().Warn("article cache read failed", zap.String("url", url), zap.Error(err))
		} else if cached != nil {
			zap.L().Debug("article cache hit", zap.String("url", url))
			return &extractor.Result{Title: cached.Title, Body: cached.Body, URL: url}, nil
		}
	}

	res, err := c.Registry.Extract(ctx, url, browser)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		article := store.Article{URL: url, Publisher: ex.Name(), Title: res.Title, Body: res.Body}
		if err := c.Cache.PutArticle(ctx, article, c.CacheTTL); err != nil {
			zap.L().Warn("article cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return res, nil
}
