package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/byteowlz/baitgen/internal/fetcher"
)

var (
	_ Extractor = (*TMIExtractor)(nil)
	_ Extractor = (*IsraelHayomExtractor)(nil)
	_ Extractor = (*MakoExtractor)(nil)
	_ Extractor = (*WallaExtractor)(nil)
)

// pageFetcher serves canned pages keyed by URL.
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

type fakeRenderer struct {
	html  string
	err   error
	calls int
}

func (r *fakeRenderer) Render(_ context.Context, _ string) (string, error) {
	r.calls++
	return r.html, r.err
}

const tmiPage = `<html><head><title> כותרת TMI </title>
<script type="application/ld+json">{"@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{
  "@type": "NewsArticle",
  "articleBody": "גוף הכתבה המלא",
  "author": "someone"
}</script></head><body></body></html>`

func TestTMIExtractor(t *testing.T) {
	url := "https://tmi.maariv.co.il/news/1"
	f := &pageFetcher{pages: map[string]string{url: tmiPage}}

	res, err := NewTMIExtractor(f).Extract(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Title != "כותרת TMI" {
		t.Errorf("unexpected title: %q", res.Title)
	}
	if res.Body != "גוף הכתבה המלא" {
		t.Errorf("unexpected body: %q", res.Body)
	}
}

func TestTMIExtractor_NoArticleBody(t *testing.T) {
	url := "https://tmi.maariv.co.il/news/2"
	f := &pageFetcher{pages: map[string]string{url: `<html><head><title>x</title></head></html>`}}

	_, err := NewTMIExtractor(f).Extract(context.Background(), url, nil)
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Publisher != "tmi" {
		t.Errorf("unexpected publisher: %q", extErr.Publisher)
	}
}

func TestMakoExtractor_StandardParagraphs(t *testing.T) {
	url := "https://www.mako.co.il/news/a"
	page := `<html><head><script type="application/ld+json">{
"headline": "כותרת מאקו",
"other": 1
}</script></head><body>
<p class="Standard">פסקה ראשונה ארוכה מספיק</p>
<p class="Standard">פסקה שנייה</p>
<p>לא צריך להופיע</p></body></html>`
	f := &pageFetcher{pages: map[string]string{url: page}}

	res, err := NewMakoExtractor(f).Extract(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "פסקה ראשונה ארוכה מספיק פסקה שנייה" {
		t.Errorf("unexpected body: %q", res.Body)
	}
	if res.Title != "כותרת מאקו" {
		t.Errorf("unexpected title: %q", res.Title)
	}
}

func TestMakoExtractor_FallbackToAllParagraphs(t *testing.T) {
	url := "https://www.mako.co.il/news/b"
	page := `<html><head><script type="application/ld+json">{
"headline": "כותרת",
}</script></head><body>
<p class="Standard">קצר</p>
<p>שורה אחת

</p><p>שורה שתיים</p></body></html>`
	f := &pageFetcher{pages: map[string]string{url: page}}

	res, err := NewMakoExtractor(f).Extract(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "קצרשורה אחתשורה שתיים"
	if res.Body != want {
		t.Errorf("expected %q, got %q", want, res.Body)
	}
}

func TestMakoExtractor_MissingLDJSON(t *testing.T) {
	url := "https://www.mako.co.il/news/c"
	page := `<html><body><p class="Standard">טקסט ארוך מספיק בשביל הבדיקה</p></body></html>`
	f := &pageFetcher{pages: map[string]string{url: page}}

	if _, err := NewMakoExtractor(f).Extract(context.Background(), url, nil); err == nil {
		t.Fatal("expected error for page without ld+json")
	}
}

func TestWallaExtractor(t *testing.T) {
	url := "https://news.walla.co.il/item/1"
	page := `<html><body><h1> כותרת וואלה </h1>
<p class="article_speakable">קרדיט צילום</p>
<p class="article_speakable">  פסקה א  </p>
<p class="article_speakable">פסקה ב</p></body></html>`
	f := &pageFetcher{pages: map[string]string{url: page}}

	res, err := NewWallaExtractor(f).Extract(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "פסקה א פסקה ב" {
		t.Errorf("unexpected body: %q", res.Body)
	}
	if res.Title != "כותרת וואלה" {
		t.Errorf("unexpected title: %q", res.Title)
	}
}

func TestWallaExtractor_OnlyCaption(t *testing.T) {
	url := "https://news.walla.co.il/item/2"
	page := `<html><body><h1>t</h1><p class="article_speakable">קרדיט</p></body></html>`
	f := &pageFetcher{pages: map[string]string{url: page}}

	if _, err := NewWallaExtractor(f).Extract(context.Background(), url, nil); err == nil {
		t.Fatal("expected error when only the caption paragraph exists")
	}
}

const hayomArticle = `<html><head><title>כותרת ישראל היום</title></head><body>
<article><h1>כותרת ישראל היום</h1>
<p>Readability needs a reasonable amount of text in the article body to decide that this block is the main content of the page, so this paragraph is deliberately long and keeps going for a while.</p>
<p>A second paragraph adds more weight to the same container, which makes the scoring even more certain that it found the right node in the document tree.</p>
<p>The third paragraph pushes the total length past the default character threshold, so the first pass over the document already yields a result without relaxing any of the cleanup flags.</p>
</article></body></html>`

const emptyShell = `<html><head><title>loading</title></head><body><div id="root"></div></body></html>`

func TestIsraelHayomExtractor_Static(t *testing.T) {
	url := "https://www.israelhayom.co.il/news/1"
	f := &pageFetcher{pages: map[string]string{url: hayomArticle}}
	r := &fakeRenderer{}

	res, err := NewIsraelHayomExtractor(f).Extract(context.Background(), url, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Body, "second paragraph") {
		t.Errorf("body missing article text: %q", res.Body)
	}
	if r.calls != 0 {
		t.Errorf("browser should not be used, got %d renders", r.calls)
	}
}

func TestIsraelHayomExtractor_BrowserFallback(t *testing.T) {
	url := "https://www.israelhayom.co.il/news/2"
	f := &pageFetcher{pages: map[string]string{url: emptyShell}}
	r := &fakeRenderer{html: hayomArticle}

	res, err := NewIsraelHayomExtractor(f).Extract(context.Background(), url, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.calls != 1 {
		t.Errorf("expected one render, got %d", r.calls)
	}
	if !strings.Contains(res.Body, "deliberately long") {
		t.Errorf("body missing rendered text: %q", res.Body)
	}
}

func TestIsraelHayomExtractor_BothPhasesEmpty(t *testing.T) {
	url := "https://www.israelhayom.co.il/news/3"
	f := &pageFetcher{pages: map[string]string{url: emptyShell}}
	r := &fakeRenderer{html: emptyShell}

	_, err := NewIsraelHayomExtractor(f).Extract(context.Background(), url, r)
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestIsraelHayomExtractor_RenderError(t *testing.T) {
	url := "https://www.israelhayom.co.il/news/4"
	f := &pageFetcher{pages: map[string]string{url: emptyShell}}
	r := &fakeRenderer{err: errors.New("chrome crashed")}

	if _, err := NewIsraelHayomExtractor(f).Extract(context.Background(), url, r); err == nil {
		t.Fatal("expected render error to surface")
	}
}

func TestRegistry_DispatchesToSingleExtractor(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://tmi.maariv.co.il/a", "tmi"},
		{"https://www.israelhayom.co.il/a", "israelhayom"},
		{"https://www.mako.co.il/a", "mako"},
		{"https://news.walla.co.il/a", "walla"},
	}

	reg := NewRegistry(DefaultRules(&pageFetcher{})...)
	for _, tt := range tests {
		ex, ok := reg.Lookup(tt.url)
		if !ok {
			t.Errorf("%s: no extractor", tt.url)
			continue
		}
		if ex.Name() != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.url, tt.want, ex.Name())
		}
	}
}

func TestRegistry_PriorityOrder(t *testing.T) {
	// A URL matching several rules goes to the first one only.
	url := "https://tmi.maariv.co.il/?ref=walla.co.il"
	f := &pageFetcher{pages: map[string]string{url: tmiPage}}
	reg := NewRegistry(DefaultRules(f)...)

	res, err := reg.Extract(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Body != "גוף הכתבה המלא" {
		t.Errorf("unexpected body: %q", res.Body)
	}
	if len(f.calls) != 1 {
		t.Errorf("expected exactly one fetch, got %d", len(f.calls))
	}
}

func TestRegistry_Unrecognized(t *testing.T) {
	f := &pageFetcher{}
	reg := NewRegistry(DefaultRules(f)...)

	_, err := reg.Extract(context.Background(), "https://www.ynet.co.il/a", nil)
	if !errors.Is(err, ErrUnrecognizedPublisher) {
		t.Fatalf("expected ErrUnrecognizedPublisher, got %v", err)
	}
	if len(f.calls) != 0 {
		t.Errorf("no fetch expected for unmatched url, got %v", f.calls)
	}
}

func TestRegistry_FetchErrorIsExtractionError(t *testing.T) {
	reg := NewRegistry(DefaultRules(&pageFetcher{})...)

	_, err := reg.Extract(context.Background(), "https://news.walla.co.il/missing", nil)
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.URL != "https://news.walla.co.il/missing" {
		t.Errorf("unexpected url: %q", extErr.URL)
	}
}

type stubExtractor struct {
	res *Result
	err error
}

func (s *stubExtractor) Name() string { return "stub" }
func (s *stubExtractor) Extract(context.Context, string, fetcher.Renderer) (*Result, error) {
	return s.res, s.err
}

func TestRegistry_WrapsPlainErrorsAndEmptyBodies(t *testing.T) {
	reg := NewRegistry(
		Rule{HostSubstring: "plain.example", Extractor: &stubExtractor{err: errors.New("boom")}},
		Rule{HostSubstring: "empty.example", Extractor: &stubExtractor{res: &Result{Title: "t", Body: "  "}}},
	)

	for _, url := range []string{"https://plain.example/x", "https://empty.example/x"} {
		_, err := reg.Extract(context.Background(), url, nil)
		var extErr *ExtractionError
		if !errors.As(err, &extErr) {
			t.Errorf("%s: expected ExtractionError, got %v", url, err)
		}
	}
}

func TestRegistry_WithSimpleFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tmiPage)
	}))
	defer server.Close()

	f := fetcher.NewSimpleFetcher(fetcher.FetchOptions{Timeout: 5 * time.Second})
	reg := NewRegistry(Rule{HostSubstring: "127.0.0.1", Extractor: NewTMIExtractor(f)})

	res, err := reg.Extract(context.Background(), server.URL+"/article", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL != server.URL+"/article" {
		t.Errorf("unexpected URL: %q", res.URL)
	}
}

func TestScanKey(t *testing.T) {
	tests := []struct {
		name   string
		script string
		key    string
		want   string
		found  bool
	}{
		{"json string", `{"headline": "שלום \"עולם\"", "x": 1}`, "headline", `שלום "עולם"`, true},
		{"broken json line", "{\n\"headline\": \"כותרת\",\n\"x\": }", "headline", "כותרת", true},
		{"unquoted value", "{\n\"count\": 12,\n}", "count", "12", true},
		{"missing key", `{"a": "b"}`, "headline", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scanKey(tt.script, tt.key)
			if ok != tt.found {
				t.Fatalf("expected found=%v, got %v", tt.found, ok)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCleanNewlines(t *testing.T) {
	in := "first line\ncontinues here.\nSecond sentence\n\n\n- bullet\n- bullet two"
	want := "first line continues here.\nSecond sentence\n\n- bullet\n- bullet two"
	if got := CleanNewlines(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
