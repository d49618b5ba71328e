// Package aggregate merges candidate URL lists from multiple search
// providers into one deduplicated, order-stable list.
package aggregate

import (
	"net/url"
	"strings"
)

// Merge normalizes and deduplicates URLs across provider result groups.
// Groups must be passed in the fixed configured provider order; first-seen
// order is preserved so the output is reproducible given the same inputs.
// URLs that cannot be parsed are dropped.
func Merge(groups [][]string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, group := range groups {
		for _, raw := range group {
			normalized, ok := Normalize(raw)
			if !ok {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			out = append(out, normalized)
		}
	}
	return out
}

// Normalize canonicalizes a Reddit URL for deduplication: https scheme,
// old/new/bare reddit hosts collapsed to www.reddit.com, utm_* tracking
// params and fragments stripped, trailing slash removed. Returns false if
// the URL is unparseable.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	// Providers sometimes omit the scheme.
	if strings.HasPrefix(raw, "reddit.com/") || strings.HasPrefix(raw, "www.reddit.com/") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.ToLower(u.Host)
	switch host {
	case "reddit.com", "old.reddit.com", "new.reddit.com":
		host = "www.reddit.com"
	}
	u.Host = host

	// http and https variants of the same reddit page are one page.
	if host == "www.reddit.com" || host == "redd.it" || strings.HasSuffix(host, ".reddit.com") {
		u.Scheme = "https"
	}

	// Drop tracking params, keep everything else (rare on Reddit links).
	q := u.Query()
	for key := range q {
		if strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	if u.Path != "/" {
		u.Path = strings.TrimRight(u.Path, "/")
	}

	return u.String(), true
}
