package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// Format identifies an output file format.
type Format string

const (
	// FormatXLSX is an Excel workbook.
	FormatXLSX Format = "xlsx"
	// FormatCSV is comma separated values.
	FormatCSV Format = "csv"
	// FormatJSON is a JSON document.
	FormatJSON Format = "json"
	// FormatMarkdown is a Markdown report.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned for output paths with an unsupported extension.
var ErrUnknownFormat = errors.New("unsupported output format")

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Options configures NewWriter and WriteFile.
type Options struct {
	// Version is embedded in JSON output.
	Version string

	// Sheet names the record sheet in workbooks.
	Sheet string

	// NoSummary leaves the Summary sheet out of workbooks.
	NoSummary bool
}

// NewWriter returns the writer for the format.
func NewWriter(format Format, output io.Writer, opts Options) (Writer, error) {
	switch format {
	case FormatXLSX:
		return NewXLSXWriter(output, WithSheet(opts.Sheet), WithSummarySheet(!opts.NoSummary)), nil
	case FormatCSV:
		return NewCSVWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint(), WithVersion(opts.Version)), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile writes the run to path in the format implied by its extension.
// The file is written to a temporary sibling and renamed into place; a
// failed export leaves any existing file untouched.
func WriteFile(path string, run *model.CrawlRun, opts Options) error {
	return WriteFiles([]string{path}, run, opts)
}

// WriteFiles writes the run to every path through one MultiWriter. Each
// format comes from its path's extension and repeated paths are written
// once. Files are renamed into place only after every writer succeeded.
func WriteFiles(paths []string, run *model.CrawlRun, opts Options) (err error) {
	paths = uniquePaths(paths)
	if len(paths) == 0 {
		return errors.New("no output path")
	}

	formats := make([]Format, len(paths))
	for i, path := range paths {
		if formats[i], err = FormatForPath(path); err != nil {
			return err
		}
	}

	temps := make([]*os.File, 0, len(paths))
	defer func() {
		if err != nil {
			for _, tmp := range temps {
				_ = tmp.Close()
				_ = os.Remove(tmp.Name())
			}
		}
	}()

	writers := make([]Writer, 0, len(paths))
	for i, path := range paths {
		dir := filepath.Dir(path)
		if err = os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		tmp, cerr := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
		if cerr != nil {
			err = fmt.Errorf("create output file: %w", cerr)
			return err
		}
		temps = append(temps, tmp)

		w, werr := NewWriter(formats[i], tmp, opts)
		if werr != nil {
			err = werr
			return err
		}
		writers = append(writers, w)
	}

	if _, err = NewMultiWriter(writers...).Write(run); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	for _, tmp := range temps {
		if err = tmp.Close(); err != nil {
			return fmt.Errorf("close output file: %w", err)
		}
	}
	for i, tmp := range temps {
		if err = os.Rename(tmp.Name(), paths[i]); err != nil {
			return fmt.Errorf("rename output file: %w", err)
		}
	}
	return nil
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
