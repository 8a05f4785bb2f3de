package extractor

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

const ldJSONSelector = `script[type="application/ld+json"]`

func fetchDocument(ctx context.Context, f fetcher.Fetcher, url string) (*goquery.Document, error) {
	page, err := f.FetchStatic(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseDocument(page.HTML)
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse html")
	}
	return doc, nil
}

// ldJSONScripts returns the raw text of every JSON-LD block in document order.
func ldJSONScripts(doc *goquery.Document) []string {
	var scripts []string
	doc.Find(ldJSONSelector).Each(func(_ int, s *goquery.Selection) {
		scripts = append(scripts, s.Text())
	})
	return scripts
}

// scanKey finds key textually in a JSON-LD script and returns its string
// value. The script is not parsed as a whole: publishers ship blocks that are
// not valid JSON. A well-formed string literal is decoded; otherwise the
// rest of the line is taken with quoting artifacts trimmed.
func scanKey(script, key string) (string, bool) {
	idx := strings.Index(script, key)
	if idx < 0 {
		return "", false
	}

	rest := script[idx+len(key):]
	rest = strings.TrimPrefix(rest, `"`)
	rest = strings.TrimLeft(rest, " \t")
	rest = strings.TrimPrefix(rest, ":")
	rest = strings.TrimLeft(rest, " \t")

	if strings.HasPrefix(rest, `"`) {
		var value string
		if err := json.NewDecoder(strings.NewReader(rest)).Decode(&value); err == nil {
			return strings.TrimSpace(value), true
		}
	}

	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, ",")
	rest = strings.Trim(rest, `"`)
	return strings.TrimSpace(rest), true
}
