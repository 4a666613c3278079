package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/tayerthiaggo/arcrest2shp/internal/layer"
)

// Default configuration values.
const (
	// DefaultWorkers is the number of layers processed concurrently.
	// ArcGIS servers throttle aggressive clients, so this stays modest.
	DefaultWorkers = 10

	// DefaultMaxRetries is the number of times a request is retried after a
	// transient network failure before the URL is reported as unresolved.
	DefaultMaxRetries = 20

	// DefaultRetryDelay is the fixed pause between retries.
	DefaultRetryDelay = 5 * time.Second

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBodySize limits the response body size read for HTML pages.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultConverter is the name of the layer download backend.
	DefaultConverter = ConverterEsri2GeoJSON

	// DefaultConverterPath is the executable used by the esri2geojson converter.
	DefaultConverterPath = "esri2geojson"

	// DefaultNameStrategy derives file names from the agency code in
	// parentheses, e.g. "Parks (DBCA011)" becomes "DBCA011_Parks".
	DefaultNameStrategy = layer.StrategyBracketCode

	// DefaultPageSize is the record count per query for the native converter.
	DefaultPageSize = 1000

	// DefaultContainerPattern marks folder-level map services in the
	// directory tree. URLs containing it are never processed as layers.
	DefaultContainerPattern = "FS/MapServer"

	// DefaultUserAgent identifies arcrest2shp in HTTP requests.
	DefaultUserAgent = "arcrest2shp/1.0 (+https://github.com/tayerthiaggo/arcrest2shp)"

	// AppName is the application name used for XDG directory paths.
	AppName = "arcrest2shp"
)

// Converter names accepted by Config.Converter.
const (
	// ConverterEsri2GeoJSON shells out to the esri2geojson command-line tool.
	ConverterEsri2GeoJSON = "esri2geojson"

	// ConverterNative queries the layer's REST query endpoint directly.
	ConverterNative = "native"
)

// Config holds all configuration options for a run.
// It is populated from CLI flags and passed through the application
// rather than kept in global state.
type Config struct {
	// RootURL is the ArcGIS REST services directory to crawl.
	RootURL string

	// AOIPath is the path to the area-of-interest boundary file
	// (GeoJSON or ESRI Shapefile).
	AOIPath string

	// AOISRID overrides the spatial reference of the AOI file.
	// Zero means detect it from the file.
	AOISRID int

	// OutputDir is the folder under which extracted_data/ is created.
	OutputDir string

	// Workers is the size of the layer worker pool.
	Workers int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxRetries is the retry ceiling for transient network failures.
	MaxRetries int

	// RetryDelay is the fixed delay between retries.
	RetryDelay time.Duration

	// RequestsPerSecond limits the request rate across crawl and workers.
	// Zero disables rate limiting.
	RequestsPerSecond float64

	// RespectRobots enables robots.txt checks before fetching.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyURL routes requests through an HTTP(S) or SOCKS5 proxy when set.
	ProxyURL string

	// Converter selects how vector layers are downloaded.
	Converter string

	// ConverterPath is the esri2geojson executable.
	ConverterPath string

	// PageSize is the native converter's resultRecordCount.
	PageSize int

	// NameStrategy selects how layer names are derived from the page.
	NameStrategy string

	// ContainerPatterns are URL substrings identifying container pages.
	ContainerPatterns []string

	// Cleanup removes GeoJSON files that did not make it into the inventory.
	Cleanup bool

	// ConfigFilePath is the path to the YAML configuration file.
	ConfigFilePath string

	// ServiceConfigs holds per-host settings loaded from the config file.
	ServiceConfigs *File

	// DBDir is the directory holding the run-history database.
	DBDir string

	// SaveToDB records the run in the history database.
	SaveToDB bool

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Workers:           DefaultWorkers,
		Timeout:           DefaultTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryDelay:        DefaultRetryDelay,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		Converter:         DefaultConverter,
		ConverterPath:     DefaultConverterPath,
		PageSize:          DefaultPageSize,
		NameStrategy:      DefaultNameStrategy,
		ContainerPatterns: []string{DefaultContainerPattern},
		Cleanup:           true,
	}
}

// XDGDataDir returns the XDG data directory for arcrest2shp.
// On Linux: ~/.local/share/arcrest2shp
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ExportDir returns the extracted_data folder inside OutputDir.
func (c *Config) ExportDir() string {
	return filepath.Join(c.OutputDir, "extracted_data")
}

// Validate checks if the configuration is valid.
// It returns the first error found.
func (c *Config) Validate() error {
	if c.RootURL == "" {
		return ErrNoRootURL
	}
	u, err := url.Parse(c.RootURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidRootURL
	}
	if c.AOIPath == "" {
		return ErrNoAOI
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Converter != ConverterEsri2GeoJSON && c.Converter != ConverterNative {
		return ErrUnknownConverter
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if _, err := layer.StrategyByName(c.NameStrategy); err != nil {
		return ErrUnknownNameStrategy
	}
	return nil
}

// ValidateCrawl checks only the settings needed for a crawl-only run.
func (c *Config) ValidateCrawl() error {
	if c.RootURL == "" {
		return ErrNoRootURL
	}
	u, err := url.Parse(c.RootURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidRootURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if _, err := layer.StrategyByName(c.NameStrategy); err != nil {
		return ErrUnknownNameStrategy
	}
	return nil
}

// Service returns the merged settings for the root URL's host, folding
// the global container patterns and rate in when the file leaves them unset.
func (c *Config) Service() ServiceConfig {
	var svc ServiceConfig
	if c.ServiceConfigs != nil {
		host := ""
		if u, err := url.Parse(c.RootURL); err == nil {
			host = strings.ToLower(u.Hostname())
		}
		svc = c.ServiceConfigs.GetServiceConfig(host)
	}
	if len(svc.ContainerPatterns) == 0 {
		svc.ContainerPatterns = c.ContainerPatterns
	}
	if svc.RequestsPerSecond == 0 {
		svc.RequestsPerSecond = c.RequestsPerSecond
	}
	return svc
}
