package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/meghashyamc/coursefetch/logger"
)

// ChromeBrowser is a headless Chrome session whose downloads land in a fixed directory.
type ChromeBrowser struct {
	ctx           context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
	logger        logger.Logger
}

func NewChromeBrowser(ctx context.Context, logger logger.Logger, downloadDir string, headless bool) (*ChromeBrowser, error) {
	absDir, err := filepath.Abs(downloadDir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve download directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create download directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	err = chromedp.Run(browserCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		logger.Error("could not start browser", "err", err.Error())
		return nil, fmt.Errorf("could not start browser: %w", err)
	}

	logger.Info("browser started", "download_dir", absDir, "headless", headless)
	return &ChromeBrowser{ctx: browserCtx, cancelBrowser: cancelBrowser, cancelAlloc: cancelAlloc, logger: logger}, nil
}

// run executes actions on the browser tab and aborts them when ctx is done.
func (c *ChromeBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("navigating", "url", url)
	return c.run(ctx, 0, chromedp.Navigate(url))
}

func (c *ChromeBrowser) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (c *ChromeBrowser) ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error {
	err := c.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrButtonNotClickable, selector, timeout)
	}
	return err
}

func (c *ChromeBrowser) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancelBrowser()
	c.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("browser did not shut down cleanly", "err", err.Error())
		return err
	}
	c.logger.Info("browser closed")
	return nil
}
