// Package urlnorm turns shared links into canonical article URLs.
package urlnorm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// NormalizationError reports a shortened link that could not be resolved.
type NormalizationError struct {
	URL string
	Err error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize %s: %v", e.URL, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

type Normalizer struct {
	shorteners []string
	client     *http.Client
}

// New returns a Normalizer that resolves links containing any of the
// shortener markers. Redirects are never followed automatically.
func New(shorteners []string, timeout time.Duration) *Normalizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Normalizer{
		shorteners: shorteners,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Normalize resolves shortened links, forces https and drops the query
// string and fragment. Normalizing a normalized URL returns it unchanged.
func (n *Normalizer) Normalize(ctx context.Context, rawURL string) (string, error) {
	url := rawURL
	if n.isShortened(url) {
		resolved, err := n.resolve(ctx, url)
		if err != nil {
			return "", &NormalizationError{URL: rawURL, Err: err}
		}
		url = resolved
	}
	return Canonical(url), nil
}

// Canonical applies the string-only rewrites of Normalize.
func Canonical(url string) string {
	url = strings.ReplaceAll(url, "http:", "https:")
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return url
}

func (n *Normalizer) isShortened(url string) bool {
	for _, marker := range n.shorteners {
		if marker != "" && strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

func (n *Normalizer) resolve(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "create HEAD request")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "HEAD request failed")
	}
	resp.Body.Close()

	if resp.StatusCode < 300 || resp.StatusCode >= 400 {
		return "", eris.Errorf("expected redirect, got HTTP %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", eris.New("redirect without Location header")
	}

	// relative Location values resolve against the short link
	target, err := resp.Request.URL.Parse(location)
	if err != nil {
		return "", eris.Wrap(err, "parse Location header")
	}
	return target.String(), nil
}
