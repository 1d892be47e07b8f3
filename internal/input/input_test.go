package input

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]string) string {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()

	if sheet != "Sheet1" {
		if err := wb.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatal(err)
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "urls.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestReadFileXLSX tests spreadsheet input.
func TestReadFileXLSX(t *testing.T) {
	t.Parallel()

	t.Run("reads named column and drops empty cells", func(t *testing.T) {
		t.Parallel()

		path := writeWorkbook(t, "Sheet1", [][]string{
			{"id", "URL"},
			{"1", "https://www.tatacliq.com/a/p-mp1"},
			{"2", ""},
			{"3", " https://www.tatacliq.com/b/p-mp2 "},
		})

		got, err := ReadFile(path, Options{Sheet: "Sheet1", Column: "url"})
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		want := []string{"https://www.tatacliq.com/a/p-mp1", "https://www.tatacliq.com/b/p-mp2"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("falls back to first column", func(t *testing.T) {
		t.Parallel()

		path := writeWorkbook(t, "Products", [][]string{
			{"link"},
			{"https://www.tatacliq.com/a/p-mp1"},
		})

		got, err := ReadFile(path, Options{Sheet: "Products", Column: "url"})
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if len(got) != 1 || got[0] != "https://www.tatacliq.com/a/p-mp1" {
			t.Errorf("unexpected urls %v", got)
		}
	})

	t.Run("missing sheet", func(t *testing.T) {
		t.Parallel()

		path := writeWorkbook(t, "Sheet1", [][]string{{"url"}})
		_, err := ReadFile(path, Options{Sheet: "Nope", Column: "url"})
		if !errors.Is(err, ErrSheetNotFound) {
			t.Errorf("expected ErrSheetNotFound, got %v", err)
		}
	})
}

// TestReadFileFormats tests csv, text and unsupported input.
func TestReadFileFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "urls.csv")
		content := "name,url\nshirt,https://www.tatacliq.com/a/p-mp1\nshoe,\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(path, Options{Column: "url"})
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if len(got) != 1 || got[0] != "https://www.tatacliq.com/a/p-mp1" {
			t.Errorf("unexpected urls %v", got)
		}
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "urls.txt")
		content := "# products\nhttps://www.tatacliq.com/a/p-mp1\n\n  tatacliq.com/b/p-mp2  \n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		got, err := ReadFile(path, Options{})
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		want := []string{"https://www.tatacliq.com/a/p-mp1", "tatacliq.com/b/p-mp2"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("legacy xls", func(t *testing.T) {
		t.Parallel()

		_, err := ReadFile(filepath.Join(dir, "old.xls"), Options{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := ReadFile(filepath.Join(dir, "missing.txt"), Options{}); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

// TestReadLines tests the line reader directly.
func TestReadLines(t *testing.T) {
	t.Parallel()

	got, err := ReadLines(strings.NewReader("a\n#b\n\nc"))
	if err != nil {
		t.Fatalf("ReadLines() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("unexpected lines %v", got)
	}
}
