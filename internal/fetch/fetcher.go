package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pretzelai/openlingo/pkg/log"
)

const (
	directTimeout = 30 * time.Second
	proxyTimeout  = 45 * time.Second

	// Responses shorter than this are treated as bot walls or error shells,
	// not articles.
	minHTMLBytes = 500

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Result holds the raw HTML of a fetched page and the strategy that produced it.
type Result struct {
	HTML   string
	Method string // "direct" or "proxy"
}

// Fetcher resolves a URL to raw HTML. It tries a plain GET with browser-like
// headers first and falls back to a remote rendering proxy for pages behind
// bot protection.
type Fetcher struct {
	direct   *http.Client
	proxy    *http.Client
	proxyURL string
	proxyKey string
}

type Option func(*Fetcher)

// WithRenderProxy configures the fallback rendering service.
func WithRenderProxy(baseURL, apiKey string) Option {
	return func(f *Fetcher) {
		f.proxyURL = baseURL
		f.proxyKey = apiKey
	}
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		direct: &http.Client{Timeout: directTimeout},
		proxy:  &http.Client{Timeout: proxyTimeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the HTML content of the given URL. It returns an error only
// when both strategies fail; the error carries human-readable reasons for
// diagnostics, per-strategy details are also logged.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	html, directErr := f.fetchDirect(ctx, rawURL)
	if directErr == nil {
		return &Result{HTML: html, Method: "direct"}, nil
	}
	log.Warn("Direct fetch of %s failed: %v", rawURL, directErr)

	html, proxyErr := f.fetchViaProxy(ctx, rawURL)
	if proxyErr == nil {
		return &Result{HTML: html, Method: "proxy"}, nil
	}
	log.Error("Proxy fetch of %s failed: %v", rawURL, proxyErr)

	return nil, fmt.Errorf("all fetch strategies failed: direct: %v; proxy: %v", directErr, proxyErr)
}

func (f *Fetcher) fetchDirect(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if origin := urlOrigin(rawURL); origin != "" {
		req.Header.Set("Referer", origin)
	}

	return doFetch(f.direct, req)
}

func (f *Fetcher) fetchViaProxy(ctx context.Context, rawURL string) (string, error) {
	if f.proxyURL == "" {
		return "", fmt.Errorf("no rendering proxy configured")
	}

	proxyReq := fmt.Sprintf("%s?api_key=%s&render=true&url=%s",
		strings.TrimSuffix(f.proxyURL, "/"),
		url.QueryEscape(f.proxyKey),
		url.QueryEscape(rawURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyReq, nil)
	if err != nil {
		return "", fmt.Errorf("creating proxy request: %w", err)
	}

	return doFetch(f.proxy, req)
}

func doFetch(client *http.Client, req *http.Request) (string, error) {
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if len(body) < minHTMLBytes {
		return "", fmt.Errorf("response too short (%d bytes)", len(body))
	}
	return string(body), nil
}

// urlOrigin derives a scheme://host referer from the target URL.
func urlOrigin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}
