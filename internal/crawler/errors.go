package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolved is returned when a URL could not be fetched after the
	// retry ceiling was reached.
	ErrUnresolved = errors.New("url unresolved after retries")

	// ErrHTTPStatus is returned for non-200 responses. It is never retried.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// configured limit. It is never retried.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid URL")
)

// StatusError carries the status code of a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.URL, e.StatusCode)
}

// Unwrap lets errors.Is match ErrHTTPStatus.
func (e *StatusError) Unwrap() error {
	return ErrHTTPStatus
}
