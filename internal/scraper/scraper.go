package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/outreach/internal/blockdetect"
	"github.com/FranksOps/outreach/pkg/retry"
)

// FetchError describes a failed page fetch. Transient failures (5xx,
// 429, network errors) are retried with backoff; permanent ones (404,
// block pages, login walls) are not.
type FetchError struct {
	URL        string
	StatusCode int
	Reason     string
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Page is a successfully scraped and text-normalized Reddit page.
type Page struct {
	// URL is the canonical URL as aggregated, not the rewritten fetch URL.
	URL  string
	HTML string
	Text string
}

// Options tunes the scraper. Zero values get defaults.
type Options struct {
	MaxAttempts  int           // per-URL fetch attempts, default 3
	InitialDelay time.Duration // first backoff, default 2s
	MaxDelay     time.Duration // backoff cap, default 30s
	// MinTextLength rejects pages whose extracted text is shorter,
	// catching removed threads and half-rendered shells. Default 100.
	MinTextLength int
	// UseOldReddit rewrites reddit.com hosts to old.reddit.com, whose
	// HTML is fully server-rendered. Default true via NewPageScraper.
	UseOldReddit bool
}

// PageScraper drives Fetcher with retry, block detection and text
// extraction.
type PageScraper struct {
	fetcher   *Fetcher
	opts      Options
	detectors []blockdetect.Detector
	logger    *slog.Logger
}

func NewPageScraper(fetcher *Fetcher, opts Options, logger *slog.Logger) *PageScraper {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 2 * time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageScraper{
		fetcher:   fetcher,
		opts:      opts,
		detectors: blockdetect.Default(),
		logger:    logger,
	}
}

// Scrape fetches pageURL with retry and returns the normalized page. On
// failure the returned error is a *FetchError (possibly wrapped in the
// retry exhaustion error).
func (s *PageScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	fetchURL := pageURL
	if s.opts.UseOldReddit {
		fetchURL = rewriteToOldReddit(pageURL)
	}

	policy := retry.Policy{
		MaxAttempts:  s.opts.MaxAttempts,
		InitialDelay: s.opts.InitialDelay,
		MaxDelay:     s.opts.MaxDelay,
		Jitter:       0.2,
		Retryable: func(err error) bool {
			var fe *FetchError
			if errors.As(err, &fe) {
				return fe.Transient
			}
			return retry.Transient(err)
		},
	}

	var page *Page
	err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			s.logger.Debug("retrying fetch", "url", fetchURL, "attempt", attempt)
		}

		res, err := s.fetcher.Fetch(ctx, fetchURL)
		if err != nil {
			return &FetchError{URL: fetchURL, Reason: "transport error", Transient: true, Err: err}
		}

		if fe := s.classify(res); fe != nil {
			return fe
		}

		text, err := ExtractText(res.Body)
		if err != nil {
			return &FetchError{URL: fetchURL, Reason: "html parse failed", Transient: false, Err: err}
		}
		if len(text) < s.opts.MinTextLength {
			return &FetchError{URL: fetchURL, StatusCode: res.StatusCode, Reason: "page text too short", Transient: true}
		}

		page = &Page{URL: pageURL, HTML: string(res.Body), Text: text}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageScraper) classify(res *FetchResult) *FetchError {
	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		return &FetchError{URL: res.URL, StatusCode: res.StatusCode, Reason: "page gone", Transient: false}
	case res.StatusCode == http.StatusTooManyRequests:
		return &FetchError{URL: res.URL, StatusCode: res.StatusCode, Reason: "rate limited", Transient: true}
	case res.StatusCode >= 500:
		return &FetchError{URL: res.URL, StatusCode: res.StatusCode, Reason: "server error", Transient: true}
	}

	if blocked, reason := blockdetect.Check(&blockdetect.Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       res.Body,
	}, s.detectors); blocked {
		return &FetchError{URL: res.URL, StatusCode: res.StatusCode, Reason: reason, Transient: false}
	}

	if res.StatusCode != http.StatusOK {
		return &FetchError{URL: res.URL, StatusCode: res.StatusCode, Reason: "unexpected status", Transient: false}
	}
	return nil
}

// rewriteToOldReddit swaps any reddit.com host variant for
// old.reddit.com, which serves threads as plain server-rendered HTML.
// Non-reddit hosts (redd.it short links resolve via redirect) pass
// through untouched.
func rewriteToOldReddit(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Host)
	switch host {
	case "reddit.com", "www.reddit.com", "new.reddit.com", "np.reddit.com":
		u.Host = "old.reddit.com"
		return u.String()
	}
	return raw
}
