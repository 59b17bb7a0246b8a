// Package workbook loads tabular configuration files into a row-oriented
// structure with sheet names preserved. Supported formats are
// multi-sheet spreadsheets (.xlsx, .xlsm, via excelize) and single-table
// delimited text (.csv).
package workbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/confpilot/confpilot/pkg/pipeline"
)

// Sheet is one named table of rows. Columns preserves the source header
// order; every row carries its cells in the same order.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Workbook is the loaded, format-independent view of a tabular file.
type Workbook struct {
	Name   string
	Sheets []Sheet
}

// TotalRows returns the number of data rows across all sheets.
func (w *Workbook) TotalRows() int {
	total := 0
	for _, s := range w.Sheets {
		total += len(s.Rows)
	}
	return total
}

// Summary returns a human-readable description used as the version
// change summary.
func (w *Workbook) Summary() string {
	if len(w.Sheets) == 1 && filepath.Ext(w.Name) == ".csv" {
		s := w.Sheets[0]
		return fmt.Sprintf("CSV file with %d rows and %d columns", len(s.Rows), len(s.Columns))
	}
	return fmt.Sprintf("Workbook with %d sheets and %d total rows", len(w.Sheets), w.TotalRows())
}

// Load reads the file at path into a Workbook. File kinds outside the
// supported tabular formats are rejected with an unsupported-format error.
func Load(path string) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadExcel(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, pipeline.NewUnsupportedFormatError(filepath.Base(path))
	}
}

// loadExcel loads every sheet of a spreadsheet, first row as headers.
func loadExcel(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	wb := &Workbook{Name: filepath.Base(path)}

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
		}
		wb.Sheets = append(wb.Sheets, buildSheet(sheetName, rows))
	}

	return wb, nil
}

// loadCSV loads a single-table delimited file. The sheet name is the file
// name without extension, mirroring how a one-sheet workbook would look.
func loadCSV(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	// Header width does not constrain data rows; normalization happens
	// in buildSheet.
	reader.FieldsPerRecord = -1

	var raw [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		raw = append(raw, record)
	}

	name := filepath.Base(path)
	sheetName := strings.TrimSuffix(name, filepath.Ext(name))

	return &Workbook{
		Name:   name,
		Sheets: []Sheet{buildSheet(sheetName, raw)},
	}, nil
}

// buildSheet normalizes raw rows into a Sheet: first row becomes the
// header, blank header cells get positional names, and every data row is
// padded or truncated to the header width.
func buildSheet(name string, raw [][]string) Sheet {
	sheet := Sheet{Name: name}
	if len(raw) == 0 {
		return sheet
	}

	for i, h := range raw[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		sheet.Columns = append(sheet.Columns, h)
	}

	width := len(sheet.Columns)
	for _, row := range raw[1:] {
		normalized := make([]string, width)
		for i := 0; i < width && i < len(row); i++ {
			normalized[i] = row[i]
		}
		sheet.Rows = append(sheet.Rows, normalized)
	}

	return sheet
}
