package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Renderer loads pages in headless Chrome so script-built tables are
// present in the returned markup.
type Renderer struct {
	chromePath string
	userAgent  string
	settle     time.Duration
}

// NewRenderer creates a Renderer. An empty chromePath lets chromedp find
// the browser.
func NewRenderer(chromePath, userAgent string) *Renderer {
	return &Renderer{chromePath: chromePath, userAgent: userAgent, settle: time.Second}
}

// Render navigates to target and returns the document's outer HTML. The
// whole browser session is bounded by timeout.
func (r *Renderer) Render(ctx context.Context, target string, headers map[string]string, timeout time.Duration) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if r.userAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(r.userAgent))
	}
	if r.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.chromePath))
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(runCtx, allocOpts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(extraHeaders(headers)),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", target, err)
	}
	return html, nil
}

// extraHeaders drops headers Chrome manages itself.
func extraHeaders(h map[string]string) network.Headers {
	out := make(network.Headers, len(h))
	for k, v := range h {
		switch k {
		case "user-agent":
			continue
		}
		out[k] = v
	}
	return out
}
