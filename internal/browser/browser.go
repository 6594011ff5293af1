// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browser wraps a Chrome session behind the small automation
// surface the fetch driver needs: navigation, element waiting, page
// reads, and link clicks. Chrome is configured to save PDFs into a
// download directory without prompting.
package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/scholar-fetch/pkg/types"
)

// Browser is the automation collaborator the fetch driver depends on.
// Implementations must be safe for sequential use from a single
// goroutine; no concurrent use is required.
type Browser interface {
	// Navigate loads the given URL in the active tab.
	Navigate(ctx context.Context, url string) error

	// WaitReady blocks until an element matching the CSS selector is
	// present, or the timeout elapses.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error

	// HTML returns the outer HTML of the current page.
	HTML(ctx context.Context) (string, error)

	// ClickMatching clicks the first anchor whose target equals href.
	ClickMatching(ctx context.Context, href string) error

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// Title returns the current page title.
	Title(ctx context.Context) (string, error)

	// Close shuts the browser down.
	Close() error
}

// Chrome drives a real Chrome instance via the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	log         zerolog.Logger
}

// NewChrome starts Chrome with the download directory and user agent
// from cfg. Startup failure is fatal to the caller: there is nothing to
// log a batch against without a browser.
func NewChrome(ctx context.Context, cfg types.BrowserConfig, log zerolog.Logger) (*Chrome, error) {
	downloadDir, err := filepath.Abs(cfg.DownloadDir)
	if err != nil {
		return nil, fmt.Errorf("resolving download directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		log:         log,
	}

	// Starting the first Run launches the process; routing downloads to
	// downloadDir suppresses the save dialog and the PDF viewer.
	err = chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(downloadDir),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	log.Debug().Str("download_dir", downloadDir).Bool("headless", cfg.Headless).
		Msg("chrome session started")
	return c, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(c.run(ctx), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) WaitReady(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(c.run(ctx), timeout)
	defer cancel()
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := chromedp.Run(c.run(ctx), chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading page HTML: %w", err)
	}
	return html, nil
}

// ClickMatching locates the anchor by comparing both the resolved and
// the raw href attribute, then clicks it in-page. Clicking rather than
// navigating lets Chrome treat a PDF link as a download.
func (c *Chrome) ClickMatching(ctx context.Context, href string) error {
	script := fmt.Sprintf(`(function() {
		const target = %q;
		for (const a of document.querySelectorAll('a')) {
			if (a.href === target || a.getAttribute('href') === target) {
				a.click();
				return 'clicked';
			}
		}
		return 'not found';
	})()`, href)

	var result string
	if err := chromedp.Run(c.run(ctx), chromedp.Evaluate(script, &result)); err != nil {
		return fmt.Errorf("clicking link %s: %w", href, err)
	}
	if result != "clicked" {
		return fmt.Errorf("link %s not present on page", href)
	}
	return nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(c.run(ctx), chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return loc, nil
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	if err := chromedp.Run(c.run(ctx), chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("reading title: %w", err)
	}
	return title, nil
}

// Close tears down the tab and the Chrome process.
func (c *Chrome) Close() error {
	c.tabCancel()
	c.allocCancel()
	return nil
}

// run ties the tab context to the caller's context so cancellation of
// either stops the operation.
func (c *Chrome) run(ctx context.Context) context.Context {
	if ctx == nil || ctx == context.Background() {
		return c.ctx
	}
	merged, cancel := context.WithCancel(c.ctx)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged
}
