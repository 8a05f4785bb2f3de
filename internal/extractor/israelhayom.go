package extractor

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// IsraelHayomExtractor extracts with readability from the static page and
// re-renders in the shared browser when the static page carries no text.
type IsraelHayomExtractor struct {
	fetcher fetcher.Fetcher
}

func NewIsraelHayomExtractor(f fetcher.Fetcher) *IsraelHayomExtractor {
	return &IsraelHayomExtractor{fetcher: f}
}

func (e *IsraelHayomExtractor) Name() string { return "israelhayom" }

func (e *IsraelHayomExtractor) Extract(ctx context.Context, url string, browser fetcher.Renderer) (*Result, error) {
	page, err := e.fetcher.FetchStatic(ctx, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, err)
	}

	article, err := readable(page.HTML, url)
	if err == nil && article.Text != "" {
		return &Result{Title: article.Title, Body: article.Text, URL: url}, nil
	}

	if browser == nil {
		return nil, extractionFailure(e.Name(), url, eris.New("no text found and no browser available"))
	}

	zap.L().Debug("static page empty, rendering in browser", zap.String("url", url), zap.Error(err))
	html, err := browser.Render(ctx, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, eris.Wrap(err, "browser render"))
	}

	article, err = readable(html, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, err)
	}
	if article.Text == "" {
		return nil, extractionFailure(e.Name(), url, eris.New("no text found"))
	}
	return &Result{Title: article.Title, Body: article.Text, URL: url}, nil
}
