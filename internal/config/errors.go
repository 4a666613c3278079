package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and identify the first
// invalid field. Callers can use errors.Is() to handle them.
var (
	// ErrNoRootURL is returned when no ArcGIS REST root URL is given.
	ErrNoRootURL = errors.New("no root URL specified: provide an ArcGIS REST services URL")

	// ErrInvalidRootURL is returned when the root URL is not an absolute http(s) URL.
	ErrInvalidRootURL = errors.New("invalid root URL: must be an absolute http or https URL")

	// ErrNoAOI is returned when the area-of-interest boundary file is missing.
	ErrNoAOI = errors.New("no area of interest specified: use --aoi")

	// ErrNoOutputDir is returned when the output folder is missing.
	ErrNoOutputDir = errors.New("no output folder specified: use --output")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidRetries is returned when the retry ceiling is negative.
	ErrInvalidRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidRetryDelay is returned when the retry delay is negative.
	ErrInvalidRetryDelay = errors.New("invalid retry delay: must be non-negative")

	// ErrInvalidRate is returned when the requests-per-second limit is negative.
	ErrInvalidRate = errors.New("invalid requests per second: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrUnknownConverter is returned when the converter name is not recognised.
	ErrUnknownConverter = errors.New("unknown converter: must be esri2geojson or native")

	// ErrInvalidPageSize is returned when the native converter page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrUnknownNameStrategy is returned when the name strategy is not recognised.
	ErrUnknownNameStrategy = errors.New("unknown name strategy: must be bracket-code or plain")
)
