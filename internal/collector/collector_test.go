package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteowlz/baitgen/internal/extractor"
	"github.com/byteowlz/baitgen/internal/fetcher"
	"github.com/byteowlz/baitgen/internal/store"
	"github.com/byteowlz/baitgen/internal/urlnorm"
)

type pageFetcher struct {
	pages map[string]string
	calls []string
}

func (f *pageFetcher) FetchStatic(_ context.Context, url string) (*fetcher.FetchResult, error) {
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("HTTP 404 for %s", url)
	}
	return &fetcher.FetchResult{HTML: html, URL: url, StatusCode: http.StatusOK}, nil
}

type fakeBrowser struct {
	closed int
}

func (b *fakeBrowser) Render(context.Context, string) (string, error) {
	return "", errors.New("not used")
}
func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

type memCache struct {
	articles map[string]store.Article
	puts     int
}

func (m *memCache) GetArticle(_ context.Context, url string) (*store.Article, error) {
	a, ok := m.articles[url]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memCache) PutArticle(_ context.Context, a store.Article, _ time.Duration) error {
	m.articles[a.URL] = a
	m.puts++
	return nil
}

const (
	tmiURL  = "https://tmi.maariv.co.il/news/1"
	makoURL = "https://www.mako.co.il/news/2"
)

var testPages = map[string]string{
	tmiURL: `<html><head><title>כותרת א</title>
<script type="application/ld+json">{
"articleBody": "גוף א",
}</script></head></html>`,
	makoURL: `<html><head><script type="application/ld+json">{
"headline": "כותרת ג",
}</script></head><body><p class="Standard">קצר</p><p>פסקה מלאה של הכתבה</p></body></html>`,
}

func newTestCollector(f *pageFetcher) *Collector {
	return &Collector{
		Normalizer: urlnorm.New(nil, time.Second),
		Registry:   extractor.NewRegistry(extractor.DefaultRules(f)...),
	}
}

func TestCollect_EndToEnd(t *testing.T) {
	f := &pageFetcher{pages: testPages}
	b := &fakeBrowser{}
	c := newTestCollector(f)
	c.NewBrowser = func() (Browser, error) { return b, nil }

	links := []string{
		"http://tmi.maariv.co.il/news/1?utm_source=fb",
		"https://www.mako.co.il/news/2#top",
		"https://www.ynet.co.il/articles/3",
	}
	results, failures, err := c.Collect(context.Background(), links)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, results, 2)

	assert.Equal(t, "כותרת א", results[0].Title)
	assert.Equal(t, "גוף א", results[0].Body)
	assert.Equal(t, links[0], results[0].Link)
	assert.Equal(t, tmiURL, results[0].URL)

	assert.Equal(t, "כותרת ג", results[1].Title)
	assert.Equal(t, "קצרפסקה מלאה של הכתבה", results[1].Body)
	assert.Equal(t, links[1], results[1].Link)

	assert.Equal(t, []string{tmiURL, makoURL}, f.calls)
	assert.Equal(t, 1, b.closed)
}

func TestCollect_FailuresAreSkipped(t *testing.T) {
	f := &pageFetcher{pages: testPages}
	c := newTestCollector(f)

	links := []string{
		"https://news.walla.co.il/item/404",
		tmiURL,
	}
	results, failures, err := c.Collect(context.Background(), links)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "גוף א", results[0].Body)

	require.Len(t, failures, 1)
	var extErr *extractor.ExtractionError
	assert.True(t, errors.As(failures[0].Err, &extErr))
	assert.Equal(t, "walla", extErr.Publisher)
}

func TestCollect_NormalizationFailure(t *testing.T) {
	f := &pageFetcher{pages: testPages}
	c := newTestCollector(f)
	c.Normalizer = urlnorm.New([]string{"bit.ly"}, time.Second)

	results, failures, err := c.Collect(context.Background(), []string{"http://bit.ly.invalid/x", tmiURL})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	require.Len(t, failures, 1)

	var normErr *urlnorm.NormalizationError
	assert.True(t, errors.As(failures[0].Err, &normErr))
}

func TestCollect_CacheHitSkipsFetch(t *testing.T) {
	f := &pageFetcher{pages: testPages}
	cache := &memCache{articles: map[string]store.Article{
		makoURL: {URL: makoURL, Publisher: "mako", Title: "cached", Body: "cached body"},
	}}
	c := newTestCollector(f)
	c.Cache = cache
	c.CacheTTL = time.Hour

	results, _, err := c.Collect(context.Background(), []string{makoURL, tmiURL})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cached body", results[0].Body)
	assert.Equal(t, []string{tmiURL}, f.calls)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, "tmi", cache.articles[tmiURL].Publisher)
}

func TestCollect_BrowserStartFailure(t *testing.T) {
	c := newTestCollector(&pageFetcher{})
	c.NewBrowser = func() (Browser, error) { return nil, errors.New("no chrome") }

	_, _, err := c.Collect(context.Background(), []string{tmiURL})
	require.Error(t, err)
}

func TestCollect_CancelledContext(t *testing.T) {
	f := &pageFetcher{pages: testPages}
	b := &fakeBrowser{}
	c := newTestCollector(f)
	c.NewBrowser = func() (Browser, error) { return b, nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _, err := c.Collect(ctx, []string{tmiURL})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, f.calls)
	assert.Equal(t, 1, b.closed)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadPosts_OrderAndOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{
		"p2": {"ext_link": "https://x/2", "bait": "ב"},
		"p1": {"ext_link": "https://x/1", "bait": "א", "likes": 3}
	}`)
	writeFile(t, dir, "b.json", `{
		"p3": {"ext_link": "https://x/3", "bait": "ג"},
		"p2": {"ext_link": "https://x/2b", "bait": "ב2"}
	}`)
	writeFile(t, dir, "notes.txt", "ignored")

	posts, err := LoadPosts(dir)
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, "p2", posts[0].ID)
	assert.Equal(t, "https://x/2b", posts[0].ExtLink)
	assert.Equal(t, "ב2", posts[0].Bait)
	assert.Equal(t, "p1", posts[1].ID)
	assert.JSONEq(t, "3", string(posts[1].Extra["likes"]))
	assert.Equal(t, "p3", posts[2].ID)
}

func TestLoadLinks_FirstN(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "posts.json", `{
		"a": {"ext_link": "https://x/a"},
		"b": {"bait": "no link"},
		"c": {"ext_link": "https://x/c"},
		"d": {"ext_link": "https://x/d"}
	}`)

	links, err := LoadLinks(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a", "https://x/c"}, links)

	all, err := LoadLinks(dir, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadPosts_BadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", `["not", "an", "object"]`)

	_, err := LoadPosts(dir)
	require.Error(t, err)
}

func TestWriteArticlesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles.csv")
	results := []extractor.Result{
		{Title: "t1", Body: "b1, with comma", Link: "l1"},
		{Title: "t1", Body: "b1, with comma", Link: "l1"},
		{Title: "t2", Body: "b2", Link: "l2"},
	}

	require.NoError(t, WriteArticlesCSV(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "\ufeffTitle,Body,Link\n"))
	assert.Equal(t, 1, strings.Count(content, "t1,"))
	assert.Contains(t, content, `"b1, with comma"`)
	assert.Contains(t, content, "t2,b2,l2\n")
}
