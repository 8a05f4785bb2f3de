package fetcher

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps a single article page.
const maxBodyBytes = 8 << 20

type FetchOptions struct {
	Timeout      time.Duration
	UserAgent    string
	BrowserAgent string
	// Delay spaces consecutive requests; zero disables spacing.
	Delay   time.Duration
	Cookies CookieSource
}

type FetchResult struct {
	HTML       string
	URL        string
	StatusCode int
}

// CookieSource supplies cookies to attach to a request for targetURL.
type CookieSource interface {
	ExtractCookies(targetURL string) ([]*http.Cookie, error)
}

// Fetcher is the static-fetch capability extractors depend on.
type Fetcher interface {
	FetchStatic(ctx context.Context, url string) (*FetchResult, error)
}

type SimpleFetcher struct {
	client          *http.Client
	userAgent       string
	browserAgent    string
	userAgentSelect *UserAgentSelector
	limiter         *rate.Limiter
	cookies         CookieSource
}

func NewSimpleFetcher(opts FetchOptions) *SimpleFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}

	return &SimpleFetcher{
		client:          &http.Client{Timeout: timeout},
		userAgent:       opts.UserAgent,
		browserAgent:    opts.BrowserAgent,
		userAgentSelect: NewUserAgentSelector(),
		limiter:         limiter,
		cookies:         opts.Cookies,
	}
}

// FetchStatic GETs url and returns the body decoded to UTF-8.
func (sf *SimpleFetcher) FetchStatic(ctx context.Context, url string) (*FetchResult, error) {
	if err := sf.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}

	userAgent := sf.userAgent
	if userAgent == "" {
		userAgent = sf.userAgentSelect.GetUserAgent(sf.browserAgent)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "he-IL,he;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")

	if sf.cookies != nil {
		// cookie lookup failures only cost us the cookies
		if cookies, err := sf.cookies.ExtractCookies(url); err == nil {
			for _, cookie := range cookies {
				req.AddCookie(cookie)
			}
		}
	}

	resp, err := sf.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("fetch: HTTP error %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	html, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		HTML:       html,
		URL:        url,
		StatusCode: resp.StatusCode,
	}, nil
}

// decodeBody converts body from the charset declared in contentType.
func decodeBody(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: decode %s body", charset)
	}
	return string(decoded), nil
}
