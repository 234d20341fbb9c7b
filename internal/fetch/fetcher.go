package fetch

import (
	"context"
	"log/slog"
	"time"

	"movers/internal/util"
)

// PageRenderer renders a page in a browser. *Renderer implements it.
type PageRenderer interface {
	Render(ctx context.Context, target string, headers map[string]string, timeout time.Duration) (string, error)
}

// RenderPolicy bounds browser rendering. Each failed attempt multiplies the
// timeout by Factor.
type RenderPolicy struct {
	Enabled        bool
	Attempts       int
	InitialTimeout time.Duration
	Factor         float64
}

// DefaultRenderPolicy is three attempts starting at 20s, growing by 1.5x.
func DefaultRenderPolicy() RenderPolicy {
	return RenderPolicy{Enabled: true, Attempts: 3, InitialTimeout: 20 * time.Second, Factor: 1.5}
}

// Fetcher fetches a page and optionally renders it.
type Fetcher struct {
	client   *Client
	renderer PageRenderer
	policy   RenderPolicy
	log      *slog.Logger
}

// NewFetcher combines a plain client with an optional renderer. A nil
// renderer disables rendering regardless of policy.
func NewFetcher(client *Client, renderer PageRenderer, policy RenderPolicy, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{client: client, renderer: renderer, policy: policy, log: log.With("component", "fetch")}
}

// Prime seeds session cookies on the underlying client.
func (f *Fetcher) Prime(ctx context.Context) { f.client.Prime(ctx) }

// Fetch retrieves target. When rendering is enabled the page is rendered
// as well; a render failure is logged and the unrendered page is returned.
// Only a failed plain fetch is an error.
func (f *Fetcher) Fetch(ctx context.Context, target, referer string) (*Page, error) {
	page, err := f.client.Get(ctx, target, referer)
	if err != nil {
		return nil, err
	}
	if !f.policy.Enabled || f.renderer == nil {
		return page, nil
	}

	start := time.Now()
	headers := f.client.Headers(target, referer)
	var html string
	err = util.RetryGrow(ctx, f.policy.Attempts, f.policy.InitialTimeout, f.policy.Factor, func(attempt int, timeout time.Duration) error {
		f.log.Info("rendering page", "url", target, "attempt", attempt, "of", f.policy.Attempts, "timeout", timeout)
		out, err := f.renderer.Render(ctx, target, headers, timeout)
		if err != nil {
			f.log.Warn("render attempt failed", "url", target, "attempt", attempt, "error", err)
			return err
		}
		html = out
		return nil
	})
	if err != nil {
		f.log.Warn("rendering failed, using unrendered page", "url", target, "error", err)
		return page, nil
	}

	page.HTML = []byte(html)
	page.Rendered = true
	page.FetchTime += time.Since(start)
	return page, nil
}
