package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/cliqcrawl/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	// ColumnInput holds the raw input URL.
	ColumnInput = "Input"

	// ColumnStatus holds the record status text.
	ColumnStatus = "Status"

	// DefaultRecordSheet is the sheet records are written to.
	DefaultRecordSheet = "Sheet1"

	// SummarySheet holds the run counters.
	SummarySheet = "Summary"

	// FieldColumnPrefix is put in front of field keys that would otherwise
	// repeat the Input or Status header.
	FieldColumnPrefix = "field:"
)

// XLSXWriter writes a run as an Excel workbook.
type XLSXWriter struct {
	baseWriter
	sheet   string
	summary bool
}

// XLSXWriterOption configures an XLSXWriter.
type XLSXWriterOption func(*XLSXWriter)

// WithSheet sets the record sheet name.
func WithSheet(name string) XLSXWriterOption {
	return func(w *XLSXWriter) {
		if name != "" {
			w.sheet = name
		}
	}
}

// WithSummarySheet adds a second sheet with the run counters.
func WithSummarySheet(enabled bool) XLSXWriterOption {
	return func(w *XLSXWriter) {
		w.summary = enabled
	}
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer, opts ...XLSXWriterOption) *XLSXWriter {
	w := &XLSXWriter{
		baseWriter: newBaseWriter(output),
		sheet:      DefaultRecordSheet,
		summary:    true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Header returns the column header for the run. Header names are unique.
func Header(run *model.CrawlRun) []string {
	cols := run.Columns()
	header := make([]string, 0, len(cols)+2)
	header = append(header, ColumnInput, ColumnStatus)
	for _, c := range cols {
		if strings.EqualFold(c, ColumnInput) || strings.EqualFold(c, ColumnStatus) {
			c = FieldColumnPrefix + c
		}
		header = append(header, c)
	}
	return header
}

// Rows returns one row per record, aligned to Header. Missing fields are empty.
func Rows(run *model.CrawlRun) [][]string {
	cols := run.Columns()
	rows := make([][]string, 0, len(run.Records))
	for _, rec := range run.Records {
		row := make([]string, 0, len(cols)+2)
		row = append(row, rec.SourceURL, rec.StatusText())
		for _, c := range cols {
			row = append(row, rec.Fields.Value(c))
		}
		rows = append(rows, row)
	}
	return rows
}

// Write renders the workbook and copies it to the output.
func (w *XLSXWriter) Write(run *model.CrawlRun) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != DefaultRecordSheet {
		if err := f.SetSheetName(DefaultRecordSheet, w.sheet); err != nil {
			return 0, fmt.Errorf("rename sheet: %w", err)
		}
	}

	if err := w.writeRecords(f, run); err != nil {
		return 0, err
	}
	if w.summary {
		if err := writeSummarySheet(f, run); err != nil {
			return 0, err
		}
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

func (w *XLSXWriter) writeRecords(f *excelize.File, run *model.CrawlRun) error {
	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Header(run))); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range Rows(run) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}

func writeSummarySheet(f *excelize.File, run *model.CrawlRun) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	for i, kv := range summaryRows(run) {
		for j, v := range kv {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SummarySheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// summaryRows lists the run properties shared by the tabular writers.
func summaryRows(run *model.CrawlRun) [][]string {
	return [][]string{
		{"Run ID", run.ID},
		{"Domain", run.Domain},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", run.Duration().Round(time.Millisecond).String()},
		{"Inputs", strconv.Itoa(run.Inputs)},
		{"Records", strconv.Itoa(len(run.Records))},
		{"Succeeded", strconv.FormatInt(run.Counts.Succeeded(), 10)},
		{"Failed", strconv.FormatInt(run.Counts.Failed, 10)},
		{"Cancelled", strconv.FormatInt(run.Counts.Cancelled, 10)},
		{"Stopped", strconv.FormatBool(run.Cancelled)},
	}
}

func toCells(row []string) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
