package fetch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// MinStaticTextLength is the shortest description a plain HTTP fetch may return before the
// board is assumed to render client-side.
const MinStaticTextLength = 500

// DefaultSettleTime bounds the wait for the description node after the page is ready.
const DefaultSettleTime = 5 * time.Second

// NeedsRendering reports whether a statically extracted description is too thin to annotate.
// A description with headed sections is accepted regardless of length.
func NeedsRendering(jd *JobDescription) bool {
	if jd == nil {
		return true
	}
	if len(jd.Sections) > 1 {
		return false
	}
	return len(strings.TrimSpace(jd.Text)) < MinStaticTextLength
}

// BrowserRenderer loads postings in headless Chrome. Its Render method is a RenderFunc.
type BrowserRenderer struct {
	board   Board
	timeout time.Duration
	settle  time.Duration
	verbose bool
}

// NewBrowserRenderer returns a renderer that waits for the board's description node.
func NewBrowserRenderer(board Board, timeout time.Duration, verbose bool) *BrowserRenderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	settle := DefaultSettleTime
	if settle > timeout {
		settle = timeout
	}
	return &BrowserRenderer{board: board, timeout: timeout, settle: settle, verbose: verbose}
}

// waitSelector is the node whose appearance means the description has rendered.
func (r *BrowserRenderer) waitSelector() string {
	return strings.Join(r.board.ContentSelectors(), ", ")
}

// Render returns the page's HTML once the description has appeared or the settle time ran out.
func (r *BrowserRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	if r.verbose {
		log.Printf("[fetch] rendering %s in headless browser (board %s)", pageURL, r.board.Platform)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var markup string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			waitCtx, cancel := context.WithTimeout(ctx, r.settle)
			defer cancel()
			if err := chromedp.WaitVisible(r.waitSelector(), chromedp.ByQuery).Do(waitCtx); err != nil && r.verbose {
				log.Printf("[fetch] description node not visible on %s after %s, using page as is", pageURL, r.settle)
			}
			return nil
		}),
		chromedp.OuterHTML("html", &markup),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	if r.verbose {
		log.Printf("[fetch] rendered %s: %d bytes", pageURL, len(markup))
	}
	return markup, nil
}
