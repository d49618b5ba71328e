// Package blockdetect recognizes Reddit block pages and login walls. A
// blocked response returns HTTP 200 often enough that status codes alone
// cannot tell a real thread from an interstitial, so detection reads the
// body as well.
package blockdetect

import (
	"bytes"
	"net/http"
	"strings"
)

// Response carries the parts of a fetch the detectors inspect.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector inspects a response and reports whether it is a block page,
// naming the mechanism when it is.
type Detector func(res *Response) (blocked bool, reason string)

// Default returns the detectors for Reddit's own interstitials plus the
// generic anti-bot vendors that proxied exits sometimes hit.
func Default() []Detector {
	return []Detector{
		detectRedditNetworkBlock,
		detectRedditRateLimit,
		detectLoginWall,
		detectCloudflare,
	}
}

// Check runs res through the detectors in order and returns the first
// hit. A nil response is never blocked.
func Check(res *Response, detectors []Detector) (bool, string) {
	if res == nil {
		return false, ""
	}
	for _, d := range detectors {
		if blocked, reason := d(res); blocked {
			return true, reason
		}
	}
	return false, ""
}

func bodyHasAny(body []byte, needles ...string) bool {
	lower := bytes.ToLower(body)
	for _, n := range needles {
		if bytes.Contains(lower, []byte(n)) {
			return true
		}
	}
	return false
}

// Reddit's edge block page. Served with 403 or sometimes 200.
func detectRedditNetworkBlock(res *Response) (bool, string) {
	if bodyHasAny(res.Body,
		"blocked by network security",
		"whoa there, pardner",
		"your request has been blocked due to a network policy",
	) {
		return true, "reddit network block"
	}
	return false, ""
}

func detectRedditRateLimit(res *Response) (bool, string) {
	if res.StatusCode == http.StatusTooManyRequests {
		return true, "reddit rate limit"
	}
	if bodyHasAny(res.Body, "you are doing that too much", "try again in a few minutes") {
		return true, "reddit rate limit"
	}
	return false, ""
}

// Login and consent interstitials render with 200 but carry none of the
// thread content.
func detectLoginWall(res *Response) (bool, string) {
	if bodyHasAny(res.Body,
		"you must be logged in",
		"log in to continue",
		"you must be 18+ to view this community",
	) {
		return true, "reddit login wall"
	}
	return false, ""
}

func detectCloudflare(res *Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Header.Get("Server")), "cloudflare") {
		return true, "cloudflare challenge"
	}
	if bodyHasAny(res.Body, "cf-browser-verification", "cf-turnstile", "attention required! | cloudflare") {
		return true, "cloudflare challenge"
	}
	return false, ""
}
