package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"botbrain/internal/domain"
)

// PageFetcher loads a web page in a real browser and returns its visible
// text with script and style content removed.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// fixedUserAgent is sent on every request. Pages vary their markup by UA;
// pinning one keeps extraction deterministic.
const fixedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config holds chromedp fetcher settings.
type Config struct {
	// Headless controls whether the launched Chrome runs headless.
	Headless bool
	// NavTimeout bounds navigation and document readiness.
	NavTimeout time.Duration
	// PageTimeout bounds the whole fetch, extraction included.
	PageTimeout time.Duration
}

// ChromeDP implements PageFetcher using a locally launched Chrome. The
// allocator is shared; each Fetch opens a fresh tab and closes it when done,
// so no page state leaks between fetches.
type ChromeDP struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	navTimeout  time.Duration
	pageTimeout time.Duration
	logger      *slog.Logger
}

// NewChromeDP creates a fetcher backed by a local Chrome instance.
func NewChromeDP(cfg Config, logger *slog.Logger) *ChromeDP {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 10 * time.Second
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 20 * time.Second
	}

	// Copy default options to avoid mutating the package-level slice.
	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(fixedUserAgent),
		chromedp.WindowSize(1280, 720),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	logger.Info("chromedp fetcher ready", "headless", cfg.Headless)

	return &ChromeDP{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		navTimeout:  cfg.NavTimeout,
		pageTimeout: cfg.PageTimeout,
	}
}

// blockedResourceTypes are request types failed before they leave the
// browser. Text extraction never needs them and they dominate page weight.
var blockedResourceTypes = []*fetch.RequestPattern{
	{ResourceType: network.ResourceTypeImage},
	{ResourceType: network.ResourceTypeMedia},
	{ResourceType: network.ResourceTypeFont},
}

// pageTextJS removes script and style subtrees, then returns the rendered
// text of the body.
const pageTextJS = `(function() {
  document.querySelectorAll('script, style, noscript').forEach(function(el) { el.remove(); });
  return document.body ? document.body.innerText : '';
})()`

// Fetch implements PageFetcher.
func (f *ChromeDP) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, f.pageTimeout)
	defer cancel()

	// Paused requests are exactly the blocked resource types; fail them all.
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*fetch.EventRequestPaused); ok {
			go func() {
				c := chromedp.FromContext(runCtx)
				execCtx := cdp.WithExecutor(runCtx, c.Target)
				if err := fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx); err != nil && f.logger != nil {
					f.logger.Debug("fetcher: fail request", "error", err)
				}
			}()
		}
	})

	var text string
	err := chromedp.Run(runCtx,
		fetch.Enable().WithPatterns(blockedResourceTypes),
		navigateReady(url, f.navTimeout),
		chromedp.Evaluate(pageTextJS, &text),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrPageFetch, url, err)
	}
	return text, nil
}

// Close releases the browser allocator.
func (f *ChromeDP) Close() error {
	f.allocCancel()
	return nil
}

// navigateReady navigates and waits for the document body under its own
// timeout, tighter than the whole-fetch deadline.
func navigateReady(url string, d time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		nctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if err := chromedp.Navigate(url).Do(nctx); err != nil {
			return err
		}
		return chromedp.WaitReady("body", chromedp.ByQuery).Do(nctx)
	})
}

var _ PageFetcher = (*ChromeDP)(nil)
