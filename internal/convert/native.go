package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

const (
	// DefaultPageSize is the resultRecordCount requested per query page.
	DefaultPageSize = 1000

	// maxPages stops a server that keeps reporting exceededTransferLimit.
	maxPages = 10000
)

// Fetcher fetches one URL. *crawler.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*model.Page, error)
}

// Native downloads features from the layer's query endpoint.
type Native struct {
	fetcher  Fetcher
	pageSize int
	logger   *slog.Logger
}

// NativeOption configures a Native converter.
type NativeOption func(*Native)

// WithPageSize sets resultRecordCount.
func WithPageSize(n int) NativeOption {
	return func(c *Native) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithNativeLogger sets the logger.
func WithNativeLogger(logger *slog.Logger) NativeOption {
	return func(c *Native) {
		c.logger = logger
	}
}

// NewNative creates a converter that issues queries through fetcher.
func NewNative(fetcher Fetcher, opts ...NativeOption) *Native {
	c := &Native{
		fetcher:  fetcher,
		pageSize: DefaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// queryPage is the part of a query response that drives paging.
type queryPage struct {
	ExceededTransferLimit bool `json:"exceededTransferLimit"`
	Properties            struct {
		ExceededTransferLimit bool `json:"exceededTransferLimit"`
	} `json:"properties"`
	Error *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

// QueryURL builds the query for one page of req starting at offset.
func (c *Native) QueryURL(req Request, offset int) (string, error) {
	u, err := url.Parse(strings.TrimRight(req.URL, "/") + "/query")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("geometry", envelope(req.BBox))
	q.Set("geometryType", "esriGeometryEnvelope")
	q.Set("inSR", strconv.Itoa(req.SRID))
	q.Set("spatialRel", "esriSpatialRelIntersects")
	q.Set("outSR", "4326")
	q.Set("returnGeometry", "true")
	q.Set("resultOffset", strconv.Itoa(offset))
	q.Set("resultRecordCount", strconv.Itoa(c.pageSize))
	q.Set("f", "geojson")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Convert pages through the query endpoint and writes all features to
// req.OutPath as a single FeatureCollection.
func (c *Native) Convert(ctx context.Context, req Request) error {
	all := geojson.NewFeatureCollection()

	offset := 0
	for page := 0; ; page++ {
		if page >= maxPages {
			return fmt.Errorf("%w: %s", ErrTooManyPages, req.URL)
		}
		qurl, err := c.QueryURL(req, offset)
		if err != nil {
			return err
		}

		p, err := c.fetcher.Fetch(ctx, qurl)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", req.URL, err)
		}

		var meta queryPage
		if err := json.Unmarshal(p.Body, &meta); err != nil {
			return fmt.Errorf("failed to decode query response for %s: %w", req.URL, err)
		}
		if meta.Error != nil {
			return fmt.Errorf("%w: %s: %d %s", ErrServiceError, req.URL, meta.Error.Code, meta.Error.Message)
		}

		fc, err := geojson.UnmarshalFeatureCollection(p.Body)
		if err != nil {
			return fmt.Errorf("failed to decode features for %s: %w", req.URL, err)
		}
		all.Features = append(all.Features, fc.Features...)

		more := meta.ExceededTransferLimit || meta.Properties.ExceededTransferLimit
		if !more || len(fc.Features) == 0 {
			break
		}
		offset += len(fc.Features)
		c.logger.Debug("fetching next page", "url", req.URL, "offset", offset)
	}

	data, err := all.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(req.OutPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", req.OutPath, err)
	}
	c.logger.Debug("layer downloaded", "url", req.URL, "features", len(all.Features))
	return nil
}
