package report

import (
	"encoding/json"
	"io"

	applog "github.com/tayerthiaggo/arcrest2shp/internal/log"
	"github.com/tayerthiaggo/arcrest2shp/internal/model"
)

// JSONWriter outputs runs in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// version is written into every document when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONRun is the document written by JSONWriter.
type JSONRun struct {
	Version string            `json:"version,omitempty"`
	Summary *model.RunSummary `json:"summary"`
	Layers  []JSONLayer       `json:"layers,omitempty"`
}

// JSONLayer is one leaf result with the error flattened to a string.
type JSONLayer struct {
	*model.LayerReport
	URL       string `json:"url"`
	LayerKind string `json:"kind"`
	Error     string `json:"error,omitempty"`
}

// Write outputs the run as a single JSON document.
func (w *JSONWriter) Write(summary *model.RunSummary, layers []*model.LayerReport) (int, error) {
	doc := JSONRun{Version: w.version, Summary: summary}
	for _, l := range layers {
		if l == nil {
			continue
		}
		jl := JSONLayer{
			LayerReport: l,
			URL:         applog.RedactURL(l.URL),
			LayerKind:   l.Kind().String(),
		}
		if l.Err != nil {
			jl.Error = applog.RedactURL(l.Err.Error())
		}
		doc.Layers = append(doc.Layers, jl)
	}
	return w.writeJSON(doc)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output.
	data = append(data, '\n')

	return w.output.Write(data)
}
