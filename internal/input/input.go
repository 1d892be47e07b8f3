package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for spreadsheet formats that cannot
	// be read, such as legacy .xls files.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrSheetNotFound is returned when the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Options locate the URLs inside tabular input.
type Options struct {
	// Sheet is the worksheet name for .xlsx input.
	Sheet string

	// Column is the header of the URL column. When no header matches, the
	// first column is used.
	Column string
}

// ReadFile reads URLs from path. The extension selects the reader: .xlsx
// and .xlsm are spreadsheets, .csv is comma separated, anything else is
// one URL per line.
func ReadFile(path string, opts Options) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xls" {
		return nil, fmt.Errorf("%w: %s (save it as .xlsx)", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path) //nolint:gosec // user-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	switch ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(f, opts)
	case ".csv":
		return ReadCSV(f, opts)
	default:
		return ReadLines(f)
	}
}

// ReadXLSX reads URLs from a workbook.
func ReadXLSX(r io.Reader, opts Options) ([]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = wb.GetSheetName(0)
	}
	if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, sheet, strings.Join(wb.GetSheetList(), ", "))
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return pickColumn(rows, opts.Column), nil
}

// ReadCSV reads URLs from CSV data with the same header rules as ReadXLSX.
func ReadCSV(r io.Reader, opts Options) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return pickColumn(rows, opts.Column), nil
}

// ReadLines reads one URL per line. Blank lines and lines starting with
// "#" are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return out, nil
}

// pickColumn returns the non-empty cells of the URL column. The column is
// found by header name; without a match the first column is used and the
// first row is kept unless it looks like a header.
func pickColumn(rows [][]string, column string) []string {
	if len(rows) == 0 {
		return nil
	}

	col, start := 0, 0
	if i := headerIndex(rows[0], column); i >= 0 {
		col, start = i, 1
	} else if len(rows[0]) > 0 && looksLikeHeader(rows[0][0]) {
		start = 1
	}

	out := make([]string, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func headerIndex(header []string, column string) int {
	column = strings.TrimSpace(column)
	if column == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}

// looksLikeHeader reports whether a first-row cell is a label rather
// than a URL.
func looksLikeHeader(cell string) bool {
	cell = strings.TrimSpace(cell)
	return cell != "" && !strings.ContainsAny(cell, "./")
}
