package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/cliqcrawl/internal/model"
)

const ruleWidth = 70

// SummaryWriter prints a short human-readable run summary, meant for the terminal.
type SummaryWriter struct {
	baseWriter

	// verbose lists every failed record instead of the first few.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose lists every failure.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// maxListedFailures caps the failure list in non-verbose mode.
const maxListedFailures = 10

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary.
func (w *SummaryWriter) Write(run *model.CrawlRun) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Run:        %s\n", run.ID)
	fmt.Fprintf(&sb, "Domain:     %s\n", run.Domain)
	fmt.Fprintf(&sb, "Duration:   %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Inputs:     %d (%d unique)\n", run.Inputs, len(run.Records))
	fmt.Fprintf(&sb, "Succeeded:  %d\n", run.Counts.Succeeded())
	fmt.Fprintf(&sb, "Failed:     %d\n", run.Counts.Failed)
	fmt.Fprintf(&sb, "Cancelled:  %d\n", run.Counts.Cancelled)
	if run.Cancelled {
		sb.WriteString("Status:     STOPPED (partial results)\n")
	} else {
		sb.WriteString("Status:     Complete\n")
	}

	w.writeFailures(&sb, run.RecordsWithStatus(model.StatusFailed))

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SummaryWriter) writeFailures(sb *strings.Builder, failed []model.Record) {
	if len(failed) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\nFAILURES\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")

	shown := failed
	if !w.verbose && len(shown) > maxListedFailures {
		shown = shown[:maxListedFailures]
	}
	for _, rec := range shown {
		fmt.Fprintf(sb, "  [%s] %s\n", rec.Kind, rec.SourceURL)
		if rec.Reason != "" {
			fmt.Fprintf(sb, "      %s\n", rec.Reason)
		}
	}
	if rest := len(failed) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose)\n", rest)
	}
}
