package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"avvo-crawler/internal/logger"
)

// BrowserUserAgent is the desktop Chrome identity presented on every
// request, browser-driven or not.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// contentSelector matches either the profile header or a review block;
// the page is considered rendered once one of them exists.
const contentSelector = `h1.profile-name, div.client-review`

// challengeTitle is the Cloudflare interstitial page title.
const challengeTitle = "Just a moment"

// stealthScript runs before every document load and strips the most
// common automation fingerprints the target site checks for.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
window.chrome = window.chrome || {runtime: {}};
`

// BrowserFetcher drives a single Chrome session via chromedp,
// configured to suppress automated-traffic fingerprints.
type BrowserFetcher struct {
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration
	log         *logger.Logger
}

// NewBrowserFetcher launches the browser and installs the stealth init
// script. The session lives until Close.
func NewBrowserFetcher(ctx context.Context, headless bool, navTimeout time.Duration, log *logger.Logger) (*BrowserFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("window-size", "1366,900"),
		chromedp.Flag("lang", "en-US"),
		chromedp.UserAgent(BrowserUserAgent),
	)
	if p := os.Getenv("CHROME_PATH"); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &BrowserFetcher{
		browserCtx:  browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		navTimeout:  navTimeout,
		log:         log,
	}, nil
}

// Fetch navigates to url, waits out a possible bot challenge and for
// the review content to render, then returns the page HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	tctx, cancel := context.WithTimeout(b.browserCtx, b.navTimeout)
	defer cancel()

	if err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", classifyBrowserErr(url, err)
	}

	if err := b.awaitChallenge(tctx, url); err != nil {
		return "", err
	}
	if err := b.awaitContent(tctx, url); err != nil {
		return "", err
	}

	// Brief human-like pause before reading the DOM.
	humanDelay(tctx, 400, 1200)

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", classifyBrowserErr(url, err)
	}
	return html, nil
}

// awaitChallenge polls the page title until the Cloudflare interstitial
// clears. Still present at the deadline means we were challenged for
// real, which is retryable.
func (b *BrowserFetcher) awaitChallenge(ctx context.Context, url string) error {
	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return classifyBrowserErr(url, err)
	}
	if !strings.Contains(title, challengeTitle) {
		return nil
	}

	b.log.Info("bot challenge detected, waiting it out", "url", url)
	for {
		humanDelay(ctx, 500, 900)
		if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return &FetchError{Kind: FailBotChallenge, URL: url, Err: errors.New("challenge did not clear")}
			}
			return classifyBrowserErr(url, err)
		}
		if !strings.Contains(title, challengeTitle) {
			b.log.Debug("bot challenge cleared", "url", url)
			return nil
		}
		select {
		case <-ctx.Done():
			return &FetchError{Kind: FailBotChallenge, URL: url, Err: errors.New("challenge did not clear")}
		default:
		}
	}
}

// awaitContent waits for the profile header or a review block.
func (b *BrowserFetcher) awaitContent(ctx context.Context, url string) error {
	for {
		var present bool
		script := fmt.Sprintf("document.querySelector(%q) !== null", contentSelector)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &present)); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return &FetchError{Kind: FailTimeout, URL: url, Err: errors.New("review content never rendered")}
			}
			return classifyBrowserErr(url, err)
		}
		if present {
			return nil
		}
		select {
		case <-ctx.Done():
			return &FetchError{Kind: FailTimeout, URL: url, Err: errors.New("review content never rendered")}
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Close tears down the browser session.
func (b *BrowserFetcher) Close() error {
	b.cancelCtx()
	b.cancelAlloc()
	return nil
}

func classifyBrowserErr(url string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: FailTimeout, URL: url, Err: err}
	case strings.Contains(err.Error(), "net::ERR"):
		return &FetchError{Kind: FailNetwork, URL: url, Err: err}
	default:
		return &FetchError{Kind: FailRender, URL: url, Err: err}
	}
}

// humanDelay sleeps a random duration in [minMs, maxMs), bailing early
// if the context ends.
func humanDelay(ctx context.Context, minMs, maxMs int) {
	d := time.Duration(minMs+rand.Intn(maxMs-minMs)) * time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
