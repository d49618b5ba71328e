// Package fingerprint builds HTTP transports whose TLS ClientHello
// matches a real browser. Reddit's edge scores the handshake before the
// request ever reaches the application, so the default Go fingerprint
// draws a block page on the first byte.
package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello shape to impersonate.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
	ProfileNone    Profile = "none" // plain Go TLS, useful for tests
)

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome, "":
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown fingerprint profile %q", p)
	}
}

// Transport returns a RoundTripper that speaks the given profile's
// ClientHello. proxyFunc may be nil for direct connections. An empty
// profile defaults to Chrome; ProfileNone returns an unmodified clone of
// the default transport.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		base.Proxy = proxyFunc
	}
	if p == ProfileNone {
		return base, nil
	}

	hello, err := helloID(p)
	if err != nil {
		return nil, err
	}

	base.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		raw, err := base.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		conn := utls.UClient(raw, &utls.Config{ServerName: host}, hello)
		if err := conn.HandshakeContext(ctx); err != nil {
			_ = raw.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return conn, nil
	}

	return base, nil
}
