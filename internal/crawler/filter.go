package crawler

import (
	"net/url"
	"path"
	"strings"
)

// Filter decides which discovered links the crawler follows.
type Filter struct {
	host           string
	ignorePatterns []string
	followPatterns []string
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithIgnorePatterns sets URL path glob patterns that are never followed,
// e.g. "/arcgis/rest/services/Utilities/*".
func WithIgnorePatterns(patterns []string) FilterOption {
	return func(f *Filter) {
		f.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts crawling to paths matching at least one
// glob pattern. Empty means every path is allowed.
func WithFollowPatterns(patterns []string) FilterOption {
	return func(f *Filter) {
		f.followPatterns = patterns
	}
}

// NewFilter creates a filter that keeps the crawl on rootURL's host.
func NewFilter(rootURL string, opts ...FilterOption) (*Filter, error) {
	u, err := url.Parse(rootURL)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidURL
	}
	f := &Filter{host: strings.ToLower(u.Host)}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ShouldFollow reports whether link stays on the root host, carries no
// query string (format switches such as ?f=pjson duplicate the page) and
// passes the ignore and follow patterns.
func (f *Filter) ShouldFollow(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, f.host) {
		return false
	}
	if u.RawQuery != "" {
		return false
	}

	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}

	if len(f.followPatterns) == 0 {
		return true
	}
	for _, pattern := range f.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// IsContainer reports whether rawURL contains any container pattern.
func IsContainer(rawURL string, containerPatterns []string) bool {
	for _, p := range containerPatterns {
		if p != "" && strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}

// Partition splits urls into containers and leaves, preserving order.
// Leaves are every URL that is not a container; non-layer pages among
// them are classified Unknown later and skipped.
func Partition(urls, containerPatterns []string) (containers, leaves []string) {
	containers = make([]string, 0)
	leaves = make([]string, 0, len(urls))
	for _, u := range urls {
		if IsContainer(u, containerPatterns) {
			containers = append(containers, u)
			continue
		}
		leaves = append(leaves, u)
	}
	return containers, leaves
}

// matchPattern checks if a URL path matches a glob pattern.
//
//   - "/prefix/*" matches everything below /prefix, at any depth
//   - "*.ext" matches any path ending in .ext
//   - otherwise path.Match rules apply to the whole path
func matchPattern(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
		return true
	}

	matched, err := path.Match(pattern, p)
	if err == nil && matched {
		return true
	}

	// Bare patterns such as "*Raster*" are tried against the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := path.Match(pattern, path.Base(p))
		return err == nil && matched
	}

	return false
}
