package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// checkProxyTimeout bounds the connectivity check in CheckProxy.
const checkProxyTimeout = 2 * time.Second

// maxRedirects stops redirect loops between web adaptors and portals.
const maxRedirects = 10

// Client builds HTTP clients for one ArcGIS REST host.
type Client struct {
	timeout   time.Duration
	proxyURL  *url.URL
	userAgent string

	// host limits credential injection to requests for the service host.
	host    string
	token   string
	headers map[string]string

	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithProxy routes traffic through the proxy at rawURL. An empty string
// leaves the client on a direct connection.
func WithProxy(rawURL string) Option {
	return func(c *Client) {
		if rawURL == "" {
			return
		}
		u, err := url.Parse(rawURL)
		if err != nil {
			u = &url.URL{Opaque: rawURL}
		}
		c.proxyURL = u
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithCredentials injects an ArcGIS token and extra headers into requests
// whose host equals host.
func WithCredentials(host, token string, headers map[string]string) Option {
	return func(c *Client) {
		c.host = strings.ToLower(host)
		c.token = token
		c.headers = headers
	}
}

// WithRateLimit caps the request rate. rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a Client with the given per-request timeout.
// The proxy URL, when set, is validated here but not contacted; call
// CheckProxy to verify it is reachable.
func NewClient(timeout time.Duration, opts ...Option) (*Client, error) {
	c := &Client{timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.proxyURL != nil {
		if c.proxyURL.Host == "" {
			return nil, ErrInvalidProxyURL
		}
		switch c.proxyURL.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedProxyScheme, c.proxyURL.Scheme)
		}
	}
	return c, nil
}

// CheckProxy verifies that the configured proxy accepts TCP connections.
// It returns nil when no proxy is configured.
func (c *Client) CheckProxy(ctx context.Context) error {
	if c.proxyURL == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyURL.Host)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrProxyUnreachable, c.proxyURL.Host, err)
	}
	return conn.Close()
}

// HTTPClient returns a new *http.Client wired with the proxy, cookie jar,
// credentials and rate limit configured on c.
func (c *Client) HTTPClient() (*http.Client, error) {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
	}

	if c.proxyURL != nil {
		switch c.proxyURL.Scheme {
		case "http", "https":
			base.Proxy = http.ProxyURL(c.proxyURL)
		default:
			dialer, err := proxy.FromURL(c.proxyURL, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
			}
			base.Proxy = nil
			base.DialContext = contextDialer(dialer)
		}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = base
	rt = &credentialTransport{
		base:      rt,
		host:      c.host,
		token:     c.token,
		headers:   c.headers,
		userAgent: c.userAgent,
	}
	if c.limiter != nil {
		rt = &rateLimitedTransport{base: rt, limiter: c.limiter}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		ch := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			ch <- dialResult{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// credentialTransport injects the User-Agent on every request and the
// token and custom headers on requests for the service host.
type credentialTransport struct {
	base      http.RoundTripper
	host      string
	token     string
	headers   map[string]string
	userAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.userAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", t.userAgent)
	}

	if t.host == "" || strings.EqualFold(clone.URL.Hostname(), t.host) {
		for key, value := range t.headers {
			clone.Header.Set(key, value)
		}
		if t.token != "" {
			q := clone.URL.Query()
			if q.Get("token") == "" {
				q.Set("token", t.token)
				clone.URL.RawQuery = q.Encode()
			}
		}
	}

	return t.base.RoundTrip(clone)
}

// rateLimitedTransport blocks each request until the limiter admits it.
type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
