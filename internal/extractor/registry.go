package extractor

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

// Rule routes URLs containing HostSubstring to Extractor.
type Rule struct {
	HostSubstring string
	Extractor     Extractor
}

// Registry tries its rules in order; the first matching substring wins.
type Registry struct {
	rules []Rule
}

func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// DefaultRules returns the built-in publishers in dispatch priority order.
func DefaultRules(f fetcher.Fetcher) []Rule {
	return []Rule{
		{HostSubstring: "tmi.maariv.co.il", Extractor: NewTMIExtractor(f)},
		{HostSubstring: "israelhayom.co.il", Extractor: NewIsraelHayomExtractor(f)},
		{HostSubstring: "mako.co", Extractor: NewMakoExtractor(f)},
		{HostSubstring: "walla.co.il", Extractor: NewWallaExtractor(f)},
	}
}

// Rules returns a copy of the registry's rules.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

func (r *Registry) Lookup(url string) (Extractor, bool) {
	for _, rule := range r.rules {
		if rule.HostSubstring != "" && strings.Contains(url, rule.HostSubstring) {
			return rule.Extractor, true
		}
	}
	return nil, false
}

// Extract dispatches url to its publisher. It returns ErrUnrecognizedPublisher
// when no rule matches and *ExtractionError for every extraction failure.
func (r *Registry) Extract(ctx context.Context, url string, browser fetcher.Renderer) (*Result, error) {
	ex, ok := r.Lookup(url)
	if !ok {
		return nil, ErrUnrecognizedPublisher
	}

	res, err := ex.Extract(ctx, url, browser)
	if err != nil {
		var extErr *ExtractionError
		if errors.As(err, &extErr) {
			return nil, err
		}
		return nil, extractionFailure(ex.Name(), url, err)
	}
	if res == nil || strings.TrimSpace(res.Body) == "" {
		return nil, extractionFailure(ex.Name(), url, eris.New("empty body"))
	}
	if res.URL == "" {
		res.URL = url
	}
	return res, nil
}
