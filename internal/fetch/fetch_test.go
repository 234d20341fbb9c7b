package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(retries int) *Client {
	return NewClient(Options{
		UserAgent:  "movers-test",
		Timeout:    2 * time.Second,
		Retries:    retries,
		RetryDelay: time.Millisecond,
	}, discardLogger())
}

func TestClientGetSendsBrowserHeaders(t *testing.T) {
	var gotUA, gotReferer, gotFetchMode, gotAuthority, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthority, gotPath = r.Header.Get("Authority"), r.Header.Get("Path")
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotFetchMode = r.Header.Get("Sec-Fetch-Mode")
		io.WriteString(w, "<html><table><tbody></tbody></table></html>")
	}))
	defer srv.Close()

	page, err := testClient(1).Get(context.Background(), srv.URL+"/gainers", "https://ref.test/")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !strings.Contains(string(page.HTML), "<tbody>") {
		t.Errorf("page.HTML = %q", page.HTML)
	}
	if page.Rendered {
		t.Error("plain fetch should not be marked rendered")
	}
	if gotUA != "movers-test" {
		t.Errorf("User-Agent = %q, want movers-test", gotUA)
	}
	if gotReferer != "https://ref.test/" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotFetchMode != "navigate" {
		t.Errorf("Sec-Fetch-Mode = %q, want navigate", gotFetchMode)
	}
	if gotAuthority != "" || gotPath != "" {
		t.Errorf("literal Authority/Path headers sent: %q %q", gotAuthority, gotPath)
	}
}

func TestClientGetRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	page, err := testClient(3).Get(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(page.HTML) != "ok" {
		t.Errorf("page.HTML = %q, want ok", page.HTML)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestClientGetGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := testClient(2).Get(context.Background(), srv.URL, ""); err == nil {
		t.Fatal("Get should fail after all retries are rejected")
	}
}

func TestClientPrimeStoresCookies(t *testing.T) {
	var sawCookie atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/prime", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "B", Value: "session", Path: "/"})
	})
	mux.HandleFunc("/gainers", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("B"); err == nil && c.Value == "session" {
			sawCookie.Store(true)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Options{CookieURL: srv.URL + "/prime", Retries: 1}, discardLogger())
	c.Prime(context.Background())
	if _, err := c.Get(context.Background(), srv.URL+"/gainers", ""); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !sawCookie.Load() {
		t.Error("primed cookie was not sent on the next request")
	}
}

func TestBrowserHeaders(t *testing.T) {
	h := BrowserHeaders("https://finance.example/gainers", "", "ua")
	for _, k := range []string{"authority", "path", ":authority", ":path"} {
		if _, ok := h[k]; ok {
			t.Errorf("pseudo-header %q must not be sent as a plain header", k)
		}
	}
	if h["sec-fetch-site"] != "none" {
		t.Errorf("sec-fetch-site without referer = %q, want none", h["sec-fetch-site"])
	}
	if _, ok := h["referer"]; ok {
		t.Error("empty referer should be omitted")
	}
	if h["user-agent"] != "ua" {
		t.Errorf("user-agent = %q", h["user-agent"])
	}

	if got := BrowserHeaders("https://finance.example/losers", "https://finance.example/gainers", "")["sec-fetch-site"]; got != "same-origin" {
		t.Errorf("sec-fetch-site = %q, want same-origin", got)
	}
	if got := BrowserHeaders("https://finance.example/losers", "https://search.example/", "")["sec-fetch-site"]; got != "cross-site" {
		t.Errorf("sec-fetch-site = %q, want cross-site", got)
	}

	extra := extraHeaders(h)
	if _, ok := extra["user-agent"]; ok {
		t.Error("extraHeaders should drop user-agent")
	}
	if extra["sec-fetch-mode"] != "navigate" {
		t.Error("extraHeaders should keep sec-fetch-mode")
	}
}

type stubRenderer struct {
	failures int
	timeouts []time.Duration
}

func (s *stubRenderer) Render(_ context.Context, _ string, _ map[string]string, timeout time.Duration) (string, error) {
	s.timeouts = append(s.timeouts, timeout)
	if len(s.timeouts) <= s.failures {
		return "", errors.New("browser crashed")
	}
	return "<html>rendered</html>", nil
}

func plainServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>plain</html>")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcherRendersWithGrowingTimeout(t *testing.T) {
	srv := plainServer(t)
	r := &stubRenderer{failures: 2}
	f := NewFetcher(testClient(1), r, DefaultRenderPolicy(), discardLogger())

	page, err := f.Fetch(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !page.Rendered || string(page.HTML) != "<html>rendered</html>" {
		t.Errorf("page = rendered %v html %q", page.Rendered, page.HTML)
	}
	want := []time.Duration{20 * time.Second, 30 * time.Second, 45 * time.Second}
	if len(r.timeouts) != len(want) {
		t.Fatalf("render attempts = %d, want %d", len(r.timeouts), len(want))
	}
	for i := range want {
		if r.timeouts[i] != want[i] {
			t.Errorf("attempt %d timeout = %v, want %v", i+1, r.timeouts[i], want[i])
		}
	}
}

func TestFetcherFallsBackWhenRenderFails(t *testing.T) {
	srv := plainServer(t)
	r := &stubRenderer{failures: 10}
	f := NewFetcher(testClient(1), r, DefaultRenderPolicy(), discardLogger())

	page, err := f.Fetch(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("render failure must not fail the fetch: %v", err)
	}
	if page.Rendered {
		t.Error("page should not be marked rendered")
	}
	if string(page.HTML) != "<html>plain</html>" {
		t.Errorf("page.HTML = %q, want plain markup", page.HTML)
	}
	if len(r.timeouts) != 3 {
		t.Errorf("render attempts = %d, want 3", len(r.timeouts))
	}
}

func TestFetcherRenderDisabled(t *testing.T) {
	srv := plainServer(t)
	r := &stubRenderer{}
	policy := DefaultRenderPolicy()
	policy.Enabled = false

	page, err := NewFetcher(testClient(1), r, policy, discardLogger()).Fetch(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if page.Rendered || len(r.timeouts) != 0 {
		t.Error("renderer should not run when rendering is disabled")
	}
}
