package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// Result is one successfully extracted article. Body is never empty.
type Result struct {
	Title string
	Body  string
	// URL is the normalized address the article was fetched from.
	URL string
	// Link is the link as it appeared in the post, used to join posts to articles.
	Link string
}

// Extractor pulls title and body out of one publisher's pages.
type Extractor interface {
	// Name identifies the publisher in logs and errors.
	Name() string

	// Extract fetches url and returns its article. browser is the shared
	// session for publishers that need client-side rendering; it may be nil.
	Extract(ctx context.Context, url string, browser fetcher.Renderer) (*Result, error)
}

// ErrUnrecognizedPublisher means no rule matched a URL. Callers skip the link.
var ErrUnrecognizedPublisher = errors.New("extractor: no publisher rule matches url")

// ExtractionError reports that a publisher heuristic could not derive an article.
type ExtractionError struct {
	Publisher string
	URL       string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extract %s: %v", e.Publisher, e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func extractionFailure(publisher, url string, err error) *ExtractionError {
	return &ExtractionError{Publisher: publisher, URL: url, Err: err}
}
