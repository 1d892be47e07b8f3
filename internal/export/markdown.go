package export

import (
	"io"
	"strconv"

	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs a run report in Markdown.
type MarkdownWriter struct {
	baseWriter
	title string
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle overrides the document heading.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      "Crawl Report",
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary, a status chart and the record table.
func (w *MarkdownWriter) Write(run *model.CrawlRun) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(w.title)
	md.PlainText("")
	rows := summaryRows(run)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeStatus(md, run)
	w.writeFailures(md, run)
	w.writeRecords(md, run)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by cliqcrawl*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeStatus(md *markdown.Markdown, run *model.CrawlRun) {
	md.H2("Status")
	md.PlainText("")

	ok := run.Counts.Succeeded()
	failed := run.Counts.Failed
	cancelled := run.Counts.Cancelled

	if ok+failed+cancelled > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Record Status"),
			piechart.WithShowData(true),
		)
		if ok > 0 {
			chart.LabelAndIntValue("ok", uint64(ok))
		}
		if failed > 0 {
			chart.LabelAndIntValue("failed", uint64(failed))
		}
		if cancelled > 0 {
			chart.LabelAndIntValue("cancelled", uint64(cancelled))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case run.Cancelled:
		md.Warningf("Run was stopped early. %d record(s) were cancelled.", cancelled)
	case failed > 0:
		md.Importantf("%d of %d record(s) failed.", failed, len(run.Records))
	case len(run.Records) == 0:
		md.Note("No input URLs were provided.")
	default:
		md.Tip("Every record succeeded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.CrawlRun) {
	failed := run.RecordsWithStatus(model.StatusFailed)
	if len(failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	rows := make([][]string, 0, len(failed))
	for _, rec := range failed {
		rows = append(rows, []string{
			strconv.Itoa(rec.Index + 1),
			truncateString(rec.SourceURL, 60),
			string(rec.Kind),
			truncateString(orDash(rec.Reason), 60),
			strconv.Itoa(rec.Attempts),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Input", "Kind", "Reason", "Attempts"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecords(md *markdown.Markdown, run *model.CrawlRun) {
	md.H2("Records")
	md.PlainText("")
	if len(run.Records) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(run.Records))
	for _, rec := range run.Records {
		rows = append(rows, []string{
			strconv.Itoa(rec.Index + 1),
			truncateString(rec.SourceURL, 60),
			rec.StatusText(),
			strconv.Itoa(rec.Fields.Len()),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Input", "Status", "Fields"},
		Rows:   rows,
	})
	md.PlainText("")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString shortens s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
