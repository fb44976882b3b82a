package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserOptions configures a BrowserPipeline.
type BrowserOptions struct {
	// URL is the page to photograph, typically an IP camera's snapshot or
	// live view page. Required.
	URL string

	// NavigationTimeout bounds each page load. A timeout is not fatal: the
	// screenshot is taken of whatever has rendered. Defaults to 10 seconds.
	NavigationTimeout time.Duration

	// ViewportWidth and ViewportHeight set the browser viewport dimensions.
	// Defaults to 1280x720 if either is zero.
	ViewportWidth  int64
	ViewportHeight int64

	Quality int
}

// BrowserPipeline photographs a web page with headless Chrome. The browser
// is started once and every Capture reloads the page and waits for it to
// settle before taking a JPEG screenshot.
type BrowserPipeline struct {
	opts BrowserOptions

	mu          sync.Mutex
	settler     *pageSettler
	tabCtx      context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

func NewBrowserPipeline(opts BrowserOptions) *BrowserPipeline {
	if opts.NavigationTimeout == 0 {
		opts.NavigationTimeout = 10 * time.Second
	}
	if opts.ViewportWidth == 0 || opts.ViewportHeight == 0 {
		opts.ViewportWidth, opts.ViewportHeight = 1280, 720
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	return &BrowserPipeline{opts: opts}
}

// Start launches the browser. The browser lives until Close, independent of
// ctx, which only bounds the launch itself.
func (p *BrowserPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tabCtx != nil {
		return nil
	}
	if p.opts.URL == "" {
		return fmt.Errorf("camera: snapshot URL must not be empty")
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(),
		append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
		)...,
	)

	// chromedp reports CDP events it cannot unmarshal through these; they
	// are harmless version skew and would corrupt the terminal UI.
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
		chromedp.WithDebugf(func(string, ...any) {}),
	)

	settler := newPageSettler()
	chromedp.ListenTarget(tabCtx, settler.onEvent)

	// The first Run starts the browser process.
	startCtx, cancelStart := context.WithCancel(tabCtx)
	defer cancelStart()
	stop := context.AfterFunc(ctx, cancelStart)
	defer stop()

	if err := chromedp.Run(startCtx,
		chromedp.EmulateViewport(p.opts.ViewportWidth, p.opts.ViewportHeight),
		page.SetLifecycleEventsEnabled(true),
	); err != nil {
		cancelTab()
		cancelAlloc()
		return fmt.Errorf("camera: failed to start browser: %w", err)
	}

	p.settler = settler
	p.tabCtx, p.cancelTab, p.cancelAlloc = tabCtx, cancelTab, cancelAlloc
	return nil
}

// Capture navigates to the snapshot URL and writes a JPEG screenshot. A page
// that has not settled within the navigation timeout is photographed as it
// is.
func (p *BrowserPipeline) Capture(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tabCtx == nil {
		return errNotStarted
	}

	navCtx, cancelNav := context.WithTimeout(p.tabCtx, p.opts.NavigationTimeout)
	defer cancelNav()
	stop := context.AfterFunc(ctx, cancelNav)
	defer stop()

	p.settler.reset()
	if err := chromedp.Run(navCtx, chromedp.Navigate(p.opts.URL)); err != nil {
		if !isTimeoutError(err) || ctx.Err() != nil {
			return fmt.Errorf("camera: navigation failed: %w", err)
		}
	}
	p.settler.wait(navCtx)
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf []byte
	shot := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(p.opts.Quality)).
			Do(ctx)
		return err
	})
	if err := chromedp.Run(p.tabCtx, shot); err != nil {
		return fmt.Errorf("camera: screenshot failed: %w", err)
	}

	return writeBytes(path, buf)
}

func (p *BrowserPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tabCtx == nil {
		return nil
	}
	p.cancelTab()
	p.cancelAlloc()
	p.tabCtx, p.settler = nil, nil
	return nil
}

// isTimeoutError reports whether err stems from a context deadline or
// cancellation.
func isTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
