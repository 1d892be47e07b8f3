package export

import (
	"io"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Writer renders a finished run.
type Writer interface {
	// Write renders the run and returns the number of bytes written.
	Write(run *model.CrawlRun) (int, error)
}

// MultiWriter fans a run out to several writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter over the given writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write calls every writer in order and stops at the first error.
func (m *MultiWriter) Write(run *model.CrawlRun) (int, error) {
	total := 0
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter tracks bytes for writers whose encoders do not report them.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
