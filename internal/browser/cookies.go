// Package browser reads cookies from locally installed browsers so static
// publisher fetches can reuse an existing (e.g. paywall) session.
package browser

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"
	"github.com/rotisserie/eris"
)

type BrowserType string

const (
	BrowserAny     BrowserType = "auto"
	BrowserChrome  BrowserType = "chrome"
	BrowserFirefox BrowserType = "firefox"
	BrowserSafari  BrowserType = "safari"
)

type CookieExtractor struct {
	browserType BrowserType

	mu     sync.Mutex
	byHost map[string][]*http.Cookie
}

func NewCookieExtractor(browserType BrowserType) *CookieExtractor {
	return &CookieExtractor{
		browserType: browserType,
		byHost:      make(map[string][]*http.Cookie),
	}
}

// ExtractCookies returns the browser cookies that apply to targetURL's host.
// Stores are scanned once per host.
func (ce *CookieExtractor) ExtractCookies(targetURL string) ([]*http.Cookie, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, eris.Wrap(err, "cookies: parse url")
	}
	host := parsed.Hostname()

	ce.mu.Lock()
	defer ce.mu.Unlock()
	if cookies, ok := ce.byHost[host]; ok {
		return cookies, nil
	}

	var cookies []*http.Cookie
	for cookie, err := range kooky.TraverseCookies(context.Background()) {
		if err != nil || cookie == nil {
			continue
		}
		if !matchesBrowser(cookie.Browser.Browser(), ce.browserType) || !matchesDomain(cookie.Domain, host) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Path:     cookie.Path,
			Domain:   cookie.Domain,
			Expires:  cookie.Expires,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		})
	}

	ce.byHost[host] = cookies
	return cookies, nil
}

func matchesBrowser(name string, browserType BrowserType) bool {
	name = strings.ToLower(name)
	switch browserType {
	case BrowserAny, "":
		return true
	case BrowserChrome:
		return strings.Contains(name, "chrome") || strings.Contains(name, "chromium")
	default:
		return strings.Contains(name, string(browserType))
	}
}

func matchesDomain(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(cookieDomain, ".")
	if cookieDomain == "" || host == "" {
		return false
	}
	return host == cookieDomain || strings.HasSuffix(host, "."+cookieDomain)
}
