// Package proxy rotates outbound requests across a set of HTTP proxies
// and sidelines endpoints that keep failing. Reddit blocks by source IP,
// so a burned proxy gets a cooldown rather than a permanent removal.
package proxy

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

type entry struct {
	url      *url.URL
	failures int
	benched  bool
	until    time.Time
}

// Pool is a round-robin proxy rotator with failure tracking. Safe for
// concurrent use. A nil *Pool means direct connections and is valid.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	byKey       map[string]*entry
	cursor      int
	maxFailures int
	cooldown    time.Duration
}

// Options tunes failure handling. Zero values get defaults.
type Options struct {
	MaxFailures int           // bench after this many consecutive failures, default 3
	Cooldown    time.Duration // bench duration, default 5m
}

func NewPool(opts Options) *Pool {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	return &Pool{
		byKey:       make(map[string]*entry),
		maxFailures: opts.MaxFailures,
		cooldown:    opts.Cooldown,
	}
}

// Add parses and registers proxy URLs. A missing scheme defaults to http.
func (p *Pool) Add(raws ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range raws {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy url %q: %w", raw, err)
		}
		if _, dup := p.byKey[u.String()]; dup {
			continue
		}
		e := &entry{url: u}
		p.entries = append(p.entries, e)
		p.byKey[u.String()] = e
	}
	return nil
}

// LoadFile reads one proxy URL per line, skipping blanks and # comments.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	var raws []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raws = append(raws, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read proxy list: %w", err)
	}
	return p.Add(raws...)
}

// Next returns the next usable proxy, or nil when the pool is empty or
// every proxy is benched. A nil receiver also returns nil.
func (p *Pool) Next() *url.URL {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if e.benched && now.After(e.until) {
			e.benched = false
			e.failures = 0
		}
		if !e.benched {
			return e.url
		}
	}
	return nil
}

// Report records the outcome of a request through the given proxy.
// Success resets the failure streak; enough consecutive failures bench
// the proxy for the cooldown period. Unknown URLs are ignored.
func (p *Pool) Report(u *url.URL, ok bool) {
	if p == nil || u == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.byKey[u.String()]
	if e == nil {
		return
	}
	if ok {
		e.failures = 0
		return
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benched = true
		e.until = time.Now().Add(p.cooldown)
	}
}

// Len reports the number of registered proxies.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
