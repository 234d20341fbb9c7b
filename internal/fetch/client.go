// Package fetch retrieves screener pages. A Client performs plain HTTP
// requests with a browser-like header set and a cookie jar; a Renderer runs
// the page through headless Chrome; a Fetcher combines the two, falling back
// to the plain page when rendering fails.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"movers/internal/util"
)

// Page is a fetched document.
type Page struct {
	HTML      []byte
	FinalURL  string // URL after following redirects
	Rendered  bool
	FetchTime time.Duration
}

// Options configures a Client.
type Options struct {
	UserAgent       string
	Timeout         time.Duration
	Retries         int
	RetryDelay      time.Duration
	RateLimitPerMin int
	CookieURL       string
}

// Client fetches pages over plain HTTP.
type Client struct {
	http      *resty.Client
	limiter   *util.RateLimiter
	userAgent string
	retries   int
	delay     time.Duration
	cookieURL string
	log       *slog.Logger
}

// NewClient creates a Client with its own cookie jar.
func NewClient(opts Options, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if opts.Retries <= 0 {
		opts.Retries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	jar, _ := cookiejar.New(nil) // only fails on a bad PublicSuffixList

	rc := resty.New().SetCookieJar(jar)
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	return &Client{
		http:      rc,
		limiter:   util.NewRateLimiter(opts.RateLimitPerMin),
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		delay:     opts.RetryDelay,
		cookieURL: opts.CookieURL,
		log:       log.With("component", "fetch"),
	}
}

// Headers returns the request headers sent for target.
func (c *Client) Headers(target, referer string) map[string]string {
	return BrowserHeaders(target, referer, c.userAgent)
}

// Get fetches target, retrying failed requests with doubling backoff.
func (c *Client) Get(ctx context.Context, target, referer string) (*Page, error) {
	var page *Page
	err := util.Retry(ctx, c.retries, c.delay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		start := time.Now()
		res, err := c.http.R().
			SetContext(ctx).
			SetHeaders(c.Headers(target, referer)).
			Get(target)
		if err != nil {
			c.log.Warn("request failed", "url", target, "error", err)
			return fmt.Errorf("fetching %s: %w", target, err)
		}
		if res.IsError() {
			c.log.Warn("request rejected", "url", target, "status", res.StatusCode())
			return fmt.Errorf("fetching %s: status %d", target, res.StatusCode())
		}

		final := target
		if res.RawResponse != nil && res.RawResponse.Request != nil {
			final = res.RawResponse.Request.URL.String()
		}
		page = &Page{
			HTML:      res.Body(),
			FinalURL:  final,
			FetchTime: time.Since(start),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("fetched page", "url", target, "bytes", len(page.HTML), "elapsed", page.FetchTime)
	return page, nil
}

// Prime requests the cookie URL once so later requests carry the session
// cookies the site hands out. Failure is logged and ignored.
func (c *Client) Prime(ctx context.Context) {
	if c.cookieURL == "" {
		return
	}
	if _, err := c.Get(ctx, c.cookieURL, ""); err != nil {
		c.log.Warn("cookie priming failed", "url", c.cookieURL, "error", err)
		return
	}
	if u, err := url.Parse(c.cookieURL); err == nil {
		c.log.Debug("session primed", "cookies", len(c.http.GetClient().Jar.Cookies(u)))
	}
}

// BrowserHeaders builds the header set a desktop Chrome sends when
// navigating to target from referer.
func BrowserHeaders(target, referer, userAgent string) map[string]string {
	h := map[string]string{
		"sec-ch-ua":        `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`,
		"sec-ch-ua-mobile": "?0",
		"sec-fetch-mode":   "navigate",
		"sec-fetch-site":   fetchSite(target, referer),
		"sec-fetch-user":   "?1",
		"accept":           "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"accept-language":  "en-US,en;q=0.9",
	}
	if referer != "" {
		h["referer"] = referer
	}
	if userAgent != "" {
		h["user-agent"] = userAgent
	}
	return h
}

// fetchSite classifies the navigation the way Sec-Fetch-Site does, by
// comparing the referer's origin with the target's.
func fetchSite(target, referer string) string {
	if referer == "" {
		return "none"
	}
	t, err1 := url.Parse(target)
	r, err2 := url.Parse(referer)
	if err1 != nil || err2 != nil {
		return "cross-site"
	}
	if t.Scheme == r.Scheme && t.Host == r.Host {
		return "same-origin"
	}
	return "cross-site"
}
