package extractor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// TMIExtractor reads Maariv TMI articles from their JSON-LD articleBody.
type TMIExtractor struct {
	fetcher fetcher.Fetcher
}

func NewTMIExtractor(f fetcher.Fetcher) *TMIExtractor {
	return &TMIExtractor{fetcher: f}
}

func (e *TMIExtractor) Name() string { return "tmi" }

func (e *TMIExtractor) Extract(ctx context.Context, url string, _ fetcher.Renderer) (*Result, error) {
	doc, err := fetchDocument(ctx, e.fetcher, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	for _, script := range ldJSONScripts(doc) {
		body, ok := scanKey(script, "articleBody")
		if !ok || body == "" {
			continue
		}
		return &Result{Title: title, Body: body, URL: url}, nil
	}

	return nil, extractionFailure(e.Name(), url, eris.New("no article body found"))
}
