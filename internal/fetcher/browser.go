package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Renderer loads a page in a real browser and returns the rendered markup.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type BrowserOptions struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	Timeout      time.Duration
	WaitSelector string
}

// BrowserSession is one Chrome process shared by every render in a run.
// Chrome starts on the first Render; Close releases it exactly once.
type BrowserSession struct {
	opts          BrowserOptions
	ctx           context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
	closeOnce     sync.Once
}

func NewBrowserSession(opts BrowserOptions) *BrowserSession {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.WaitSelector == "" {
		opts.WaitSelector = "body"
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &BrowserSession{
		opts:          opts,
		ctx:           browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
	}
}

// Render navigates to url in a fresh tab and returns the page's outer HTML.
func (bs *BrowserSession) Render(ctx context.Context, url string) (string, error) {
	if bs.ctx.Err() != nil {
		return "", eris.New("browser: session closed")
	}

	// The first Run on the session context starts Chrome; later tabs reuse it.
	if err := chromedp.Run(bs.ctx); err != nil {
		return "", eris.Wrap(err, "browser: start")
	}

	tabCtx, cancelTab := chromedp.NewContext(bs.ctx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, bs.opts.Timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(bs.opts.WaitSelector),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", eris.Wrapf(err, "browser: render %s", url)
	}

	zap.L().Debug("browser: rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}

func (bs *BrowserSession) Close() error {
	bs.closeOnce.Do(func() {
		bs.cancelBrowser()
		bs.cancelAlloc()
	})
	return nil
}
