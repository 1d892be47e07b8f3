package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Profile is a set of headers and a cookie applied to requests for one host.
type Profile struct {
	Headers map[string]string
	Cookie  string
}

// maxRedirects bounds redirect chains.
const maxRedirects = 10

// TransportOption configures NewHTTPClient.
type TransportOption func(*transportConfig)

type transportConfig struct {
	proxyURL string
	hosts    map[string]Profile
	timeout  time.Duration
}

// WithProxy routes all requests through the given proxy URL.
// Supported schemes are socks5, socks5h, http and https.
func WithProxy(rawURL string) TransportOption {
	return func(c *transportConfig) {
		c.proxyURL = rawURL
	}
}

// WithHostProfiles applies per-host header and cookie overrides.
// Keys are lower-case host names without port.
func WithHostProfiles(hosts map[string]Profile) TransportOption {
	return func(c *transportConfig) {
		c.hosts = hosts
	}
}

// WithClientTimeout sets http.Client.Timeout as an upper bound for any
// request, including ones made without a per-attempt deadline.
func WithClientTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		c.timeout = d
	}
}

// NewHTTPClient creates the HTTP client used by the Fetcher.
// Redirects are followed up to a fixed limit. There is no cookie jar: each
// request carries exactly the configured cookie.
func NewHTTPClient(opts ...TransportOption) (*http.Client, error) {
	cfg := &transportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:errcheck,forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConns = 64
	transport.MaxIdleConnsPerHost = 16
	transport.IdleConnTimeout = 90 * time.Second

	if cfg.proxyURL != "" {
		if err := applyProxy(transport, cfg.proxyURL); err != nil {
			return nil, err
		}
	}

	var rt http.RoundTripper = transport
	if len(cfg.hosts) > 0 {
		rt = &profileTransport{base: transport, hosts: normalizeHosts(cfg.hosts)}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// applyProxy configures transport to use the proxy at rawURL.
func applyProxy(transport *http.Transport, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ErrInvalidProxyURL
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return ErrInvalidProxyURL
	}
}

func normalizeHosts(hosts map[string]Profile) map[string]Profile {
	out := make(map[string]Profile, len(hosts))
	for h, p := range hosts {
		out[strings.ToLower(strings.TrimSpace(h))] = p
	}
	return out
}

// profileTransport wraps an http.RoundTripper and applies the profile of
// the request's host on top of the headers already set.
type profileTransport struct {
	base  http.RoundTripper
	hosts map[string]Profile
}

// RoundTrip implements http.RoundTripper.
func (t *profileTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	p, ok := t.hosts[strings.ToLower(req.URL.Hostname())]
	if !ok {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	applyProfile(clone.Header, p.Headers, p.Cookie)
	return t.base.RoundTrip(clone)
}

// applyProfile sets headers and the cookie on h, replacing existing values.
// A "cookie" entry in headers is merged in front of the explicit cookie.
func applyProfile(h http.Header, headers map[string]string, cookie string) {
	for k, v := range headers {
		if strings.EqualFold(k, "cookie") {
			cookie = joinCookie(v, cookie)
			continue
		}
		h.Set(k, v)
	}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
}

func joinCookie(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "; " + b
	}
}
