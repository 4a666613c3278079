package transport

import "errors"

var (
	// ErrInvalidProxyURL is returned when the proxy URL cannot be parsed
	// or has no host.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected scheme://host:port")

	// ErrUnsupportedProxyScheme is returned for proxy schemes other than
	// http, https, socks5 and socks5h.
	ErrUnsupportedProxyScheme = errors.New("unsupported proxy scheme: use http, https, socks5 or socks5h")

	// ErrProxyUnreachable is returned by CheckProxy when no TCP connection
	// to the proxy can be established.
	ErrProxyUnreachable = errors.New("cannot connect to proxy")
)
