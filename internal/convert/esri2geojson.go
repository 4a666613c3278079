package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Esri2GeoJSON shells out to the esri2geojson tool.
type Esri2GeoJSON struct {
	path   string
	run    Runner
	logger *slog.Logger
}

// Esri2GeoJSONOption configures an Esri2GeoJSON converter.
type Esri2GeoJSONOption func(*Esri2GeoJSON)

// WithRunner replaces command execution, for tests.
func WithRunner(r Runner) Esri2GeoJSONOption {
	return func(e *Esri2GeoJSON) {
		e.run = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Esri2GeoJSONOption {
	return func(e *Esri2GeoJSON) {
		e.logger = logger
	}
}

// NewEsri2GeoJSON creates a converter running the executable at path.
func NewEsri2GeoJSON(path string, opts ...Esri2GeoJSONOption) *Esri2GeoJSON {
	if path == "" {
		path = "esri2geojson"
	}
	e := &Esri2GeoJSON{
		path:   path,
		run:    execRunner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Args returns the command line for req, without the executable.
func (e *Esri2GeoJSON) Args(req Request) []string {
	return []string{
		req.URL,
		"-p", "geometry=" + envelope(req.BBox),
		"-p", "inSR=" + strconv.Itoa(req.SRID),
		req.OutPath,
	}
}

// Convert runs the tool. Any non-zero exit is ErrConverterFailed.
// No timeout is applied beyond ctx.
func (e *Esri2GeoJSON) Convert(ctx context.Context, req Request) error {
	args := e.Args(req)
	e.logger.Debug("running converter", "cmd", e.path, "url", req.URL, "out", req.OutPath)

	out, err := e.run(ctx, e.path, args...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w%s", ErrConverterFailed, req.URL, err, tail(out))
	}
	return nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // executable is operator configuration
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// tail returns the last line of tool output, prefixed for an error message.
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if s == "" {
		return ""
	}
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	const limit = 200
	if len(s) > limit {
		s = s[:limit]
	}
	return ": " + s
}
