// Package transport builds the HTTP client shared by the crawler and the
// layer converters.
//
// The client optionally routes through an HTTP(S) or SOCKS5 proxy, keeps a
// cookie jar scoped by public suffix so ArcGIS web-adaptor session cookies
// survive redirects, and injects per-service credentials into every request
// sent to the service host. A token bucket limits the request rate when the
// service asks for politeness.
//
// The package is designed to be used with dependency injection: create a
// Client once per run and pass its *http.Client to components that need
// network access.
package transport
