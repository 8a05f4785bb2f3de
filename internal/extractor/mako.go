package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// makoMinBodyLength is the shortest styled-paragraph body accepted before
// falling back to every paragraph on the page.
const makoMinBodyLength = 20

// MakoExtractor joins Mako's "Standard" paragraphs, falling back to all
// paragraphs for pages that do not use the class.
type MakoExtractor struct {
	fetcher   fetcher.Fetcher
	minLength int
}

func NewMakoExtractor(f fetcher.Fetcher) *MakoExtractor {
	return &MakoExtractor{fetcher: f, minLength: makoMinBodyLength}
}

func (e *MakoExtractor) Name() string { return "mako" }

func (e *MakoExtractor) Extract(ctx context.Context, url string, _ fetcher.Renderer) (*Result, error) {
	doc, err := fetchDocument(ctx, e.fetcher, url)
	if err != nil {
		return nil, extractionFailure(e.Name(), url, err)
	}

	body := e.body(doc)
	if body == "" {
		return nil, extractionFailure(e.Name(), url, eris.New("no text found"))
	}

	scripts := ldJSONScripts(doc)
	if len(scripts) == 0 {
		return nil, extractionFailure(e.Name(), url, eris.New("no ld+json script"))
	}
	title, ok := scanKey(scripts[0], "headline")
	if !ok {
		return nil, extractionFailure(e.Name(), url, eris.New("no headline in ld+json"))
	}

	return &Result{Title: title, Body: body, URL: url}, nil
}

func (e *MakoExtractor) body(doc *goquery.Document) string {
	var parts []string
	doc.Find("p.Standard").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	body := strings.Join(parts, " ")
	if utf8.RuneCountInString(body) >= e.minLength {
		return strings.TrimSpace(body)
	}

	var all strings.Builder
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		all.WriteString(s.Text())
	})
	return strings.TrimSpace(strings.ReplaceAll(all.String(), "\n\n", ""))
}
