package export

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// CSVWriter outputs the record table as comma separated values.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the header row followed by one row per record.
func (w *CSVWriter) Write(run *model.CrawlRun) (int, error) {
	cw := &countingWriter{w: w.output}
	enc := csv.NewWriter(cw)
	if err := enc.Write(Header(run)); err != nil {
		return cw.n, err
	}
	if err := enc.WriteAll(Rows(run)); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}
