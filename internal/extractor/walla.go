package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// WallaExtractor joins Walla's speakable paragraphs. The first one is the
// byline/caption and is skipped.
type WallaExtractor struct {
	fetcher fetcher.Fetcher
}

func NewWallaExtractor(f fetcher.Fetcher) *WallaExtractor {
	return &WallaExtractor{fetcher: f}
}

func (e *WallaExtractor) Name() string { return "walla" }

func (e *WallaExtractor) Extract(ctx context.Context, url string, _ fetcher.Renderer) (*Result, error) {
	doc, err := fetchDocument(ctx, e.fetcher, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, err)
	}

	var parts []string
	doc.Find("p.article_speakable").Each(func(i int, s *goquery.Selection) {
		if i == 0 {
			return
		}
		parts = append(parts, strings.TrimSpace(s.Text()))
	})
	body := strings.TrimSpace(strings.Join(parts, " "))
	if body == "" {
		return nil, extractionFailure(e.Name(), url, eris.New("no text found"))
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	return &Result{Title: title, Body: body, URL: url}, nil
}
