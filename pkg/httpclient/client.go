// Package httpclient wraps net/http with the redirect, cookie and
// transport behavior page fetching needs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config controls client construction.
type Config struct {
	// Timeout bounds the whole exchange including body read. Zero means
	// 30 seconds.
	Timeout time.Duration
	// MaxRedirects caps redirect chains. Negative disables following
	// redirects entirely.
	MaxRedirects int
	// CookieJar enables an in-memory jar. Reddit sets session cookies on
	// the first response and block-checks their absence on the next.
	CookieJar bool
	// Transport overrides the default transport, e.g. a fingerprinted or
	// proxied round-tripper.
	Transport http.RoundTripper
}

// Client is a thin wrapper over http.Client with context-first Do.
type Client struct {
	*http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{Timeout: cfg.Timeout}

	if cfg.MaxRedirects < 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if cfg.MaxRedirects > 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}

	if cfg.CookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c}, nil
}

// Do executes req under ctx. The request is cloned so the caller's copy
// is never mutated.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	return resp, nil
}
