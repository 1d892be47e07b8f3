package export

import (
	"encoding/json"
	"io"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// JSONWriter outputs a run as a single JSON document.
type JSONWriter struct {
	baseWriter
	indent  string
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// WithVersion records the tool version in the document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document is the JSON shape written by JSONWriter.
type Document struct {
	Version string          `json:"version,omitempty"`
	Columns []string        `json:"columns"`
	Run     *model.CrawlRun `json:"run"`
}

// Write outputs the run wrapped in a Document.
func (w *JSONWriter) Write(run *model.CrawlRun) (int, error) {
	doc := Document{
		Version: w.version,
		Columns: Header(run),
		Run:     run,
	}

	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
