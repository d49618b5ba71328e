// Package scraper fetches Reddit pages and reduces them to plain text
// for evidence extraction. Fetching goes through a browser-fingerprinted
// transport with User-Agent rotation, optional proxy rotation and host
// rate limiting; the scraper layer above adds retry, block detection and
// text normalization.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/outreach/internal/fingerprint"
	"github.com/FranksOps/outreach/pkg/httpclient"
	"github.com/FranksOps/outreach/pkg/proxy"
	"github.com/FranksOps/outreach/pkg/ratelimit"
	"github.com/FranksOps/outreach/pkg/useragent"
)

type contextKey string

// Per-request proxy selection rides on the request context so a single
// shared transport keeps its connection pool.
const proxyKey contextKey = "proxy_url"

// FetchConfig configures the fetcher. Zero values get sane defaults.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Limiter
}

// FetchResult is one raw HTTP exchange.
type FetchResult struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs single GET fetches. One Fetcher holds one client so
// cookies and pooled connections persist across requests.
type Fetcher struct {
	cfg    FetchConfig
	client *httpclient.Client
}

func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}

	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if val := req.Context().Value(proxyKey); val != nil {
			if u, ok := val.(*url.URL); ok {
				return u, nil
			}
		}
		return nil, nil
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		CookieJar:    true,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("build http client: %w", err)
	}

	return &Fetcher{cfg: cfg, client: client}, nil
}

// Fetch issues one GET to targetURL. Transport-level failures come back
// as errors; any HTTP response, block page or not, comes back as a
// FetchResult for the caller to judge.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	if f.cfg.Limiter != nil {
		if err := f.cfg.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()

	activeProxy := f.cfg.ProxyPool.Next()
	if activeProxy != nil {
		ctx = context.WithValue(ctx, proxyKey, activeProxy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", targetURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		f.cfg.ProxyPool.Report(activeProxy, false)
		return nil, err
	}
	defer resp.Body.Close()
	f.cfg.ProxyPool.Report(activeProxy, true)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", targetURL, err)
	}

	return &FetchResult{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}
