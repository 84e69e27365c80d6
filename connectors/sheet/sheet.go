// Package sheet reads shipment plan tables from workbooks and CSV files.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"rebar-stats/domain/shipment"
)

const utf8BOM = "\ufeff"

// Locate returns the first candidate that exists and can be opened for reading.
func Locate(candidates []string) (string, error) {
	for _, p := range candidates {
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		fi, err := f.Stat()
		f.Close()
		if err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", &shipment.SourceUnavailableError{
		Candidates: candidates,
		Err:        errors.New("no readable data file"),
	}
}

// Load locates the first readable candidate and reads it. Failures are
// reported as *shipment.SourceUnavailableError carrying every path tried.
func Load(candidates []string, sheetName string) (*shipment.Table, error) {
	path, err := Locate(candidates)
	if err != nil {
		return nil, err
	}
	t, err := Read(path, sheetName)
	if err != nil {
		return nil, &shipment.SourceUnavailableError{Source: path, Candidates: candidates, Err: err}
	}
	t.Candidates = candidates
	return t, nil
}

// Read loads the table at path. Files ending in .csv are parsed as CSV,
// anything else is opened as a workbook. The first row holds the headers.
func Read(path, sheetName string) (*shipment.Table, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		rows, err = readCSV(path)
	} else {
		rows, err = readWorkbook(path, sheetName)
	}
	if err != nil {
		return nil, err
	}
	t := &shipment.Table{Source: path}
	if len(rows) == 0 {
		return t, nil
	}
	t.Headers = rows[0]
	if len(t.Headers) > 0 {
		t.Headers[0] = strings.TrimPrefix(t.Headers[0], utf8BOM)
	}
	t.Rows = make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		t.Rows = append(t.Rows, pad(r, len(t.Headers)))
	}
	return t, nil
}

func readWorkbook(path, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	// Raw values keep date cells as serial numbers instead of their
	// locale-formatted display text.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func pad(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
