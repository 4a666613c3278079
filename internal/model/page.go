package model

import (
	"strings"
	"time"
)

// Page is a fetched ArcGIS REST page.
type Page struct {
	// URL is the absolute URL the page was fetched from.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// IsHTML reports whether the content type indicates HTML.
// An empty content type is treated as HTML because some ArcGIS web
// adaptors omit the header on directory pages.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return ct == "" ||
		strings.HasPrefix(ct, "text/html") ||
		strings.HasPrefix(ct, "application/xhtml+xml")
}
