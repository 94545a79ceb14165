package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "acceptcli/internal/errors"
)

// headerScanRows bounds the search for a header row below title rows
const headerScanRows = 20

// Table is a fully materialized input table with case-insensitive column lookup
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table from a header and rows
func NewTable(path string, header []string, rows [][]string) *Table {
	t := &Table{Path: path, Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, exists := t.index[key]; !exists {
			t.index[key] = i
		}
	}
	return t
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// ReadTable reads a .csv or .xlsx file. The header row is the first row
// within the leading rows that carries every required column, so title rows
// above the header are skipped. Missing columns are a PARSING error.
func ReadTable(path string, required ...string) (*Table, error) {
	var (
		t   *Table
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		t, err = readWorkbook(path, required)
	default:
		t, err = readDelimited(path, required)
	}
	if err != nil {
		return nil, err
	}

	if err := t.Require(required...); err != nil {
		return nil, err
	}
	return t, nil
}

func readDelimited(path string, required []string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open table", err).WithContext("path", path)
	}
	defer f.Close()

	return ReadCSV(f, path, required...)
}

// ReadCSV reads delimited rows from r; path is only used in errors
func ReadCSV(r io.Reader, path string, required ...string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv", err).WithContext("path", path)
	}
	return fromRows(path, rows, required)
}

func readWorkbook(path string, required []string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	var firstErr error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if findHeaderRow(rows, required) >= 0 {
			return fromRows(path, rows, required)
		}
	}

	if firstErr != nil {
		return nil, apperrors.NewParsingError("failed to read workbook", firstErr).WithContext("path", path)
	}
	return nil, apperrors.NewParsingError(
		fmt.Sprintf("no sheet has a header row with columns %s", strings.Join(required, ", ")), nil).
		WithContext("path", path)
}

func fromRows(path string, rows [][]string, required []string) (*Table, error) {
	headerRow := findHeaderRow(rows, required)
	if headerRow < 0 {
		// fall back to the first non-blank row so Require can name the missing columns
		headerRow = findHeaderRow(rows, nil)
	}
	if headerRow < 0 {
		return nil, apperrors.NewParsingError("table has no header row", nil).WithContext("path", path)
	}

	var data [][]string
	for _, row := range rows[headerRow+1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, row)
	}
	return NewTable(path, rows[headerRow], data), nil
}

// findHeaderRow returns the index of the first non-blank row holding all
// required columns, or -1
func findHeaderRow(rows [][]string, required []string) int {
	for i, row := range rows {
		if i >= headerScanRows {
			break
		}
		if isBlank(row) {
			continue
		}
		present := make(map[string]bool, len(row))
		for _, cell := range row {
			present[normalizeHeader(cell)] = true
		}
		found := true
		for _, col := range required {
			if !present[normalizeHeader(col)] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return -1
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Require returns a PARSING error naming every absent column
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, col := range cols {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewParsingError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")), nil).
			WithContext("path", t.Path)
	}
	return nil
}

// Has reports whether the table has the column
func (t *Table) Has(col string) bool {
	_, ok := t.index[normalizeHeader(col)]
	return ok
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnsWithPrefix returns the header names starting with prefix, in file order
func (t *Table) ColumnsWithPrefix(prefix string) []string {
	prefix = normalizeHeader(prefix)
	var cols []string
	for _, h := range t.Header {
		if strings.HasPrefix(normalizeHeader(h), prefix) {
			cols = append(cols, h)
		}
	}
	return cols
}

// String returns the trimmed cell value, or "" when the row is short
func (t *Table) String(row int, col string) string {
	i, ok := t.index[normalizeHeader(col)]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// OptionalFloat parses a numeric cell; ok is false when the cell is blank
func (t *Table) OptionalFloat(row int, col string) (v float64, ok bool, err error) {
	s := t.String(row, col)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false, t.cellError(row, col, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, t.cellError(row, col, s, fmt.Errorf("not a finite number"))
	}
	return v, true, nil
}

// Float parses a required numeric cell
func (t *Table) Float(row int, col string) (float64, error) {
	v, ok, err := t.OptionalFloat(row, col)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, t.cellError(row, col, "", fmt.Errorf("blank value"))
	}
	return v, nil
}

// Int parses a required integer cell; whole-valued decimals such as "12.0" are accepted
func (t *Table) Int(row int, col string) (int64, error) {
	s := strings.ReplaceAll(t.String(row, col), ",", "")
	if s == "" {
		return 0, t.cellError(row, col, "", fmt.Errorf("blank value"))
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, t.cellError(row, col, s, fmt.Errorf("not an integer"))
	}
	return int64(f), nil
}

func (t *Table) cellError(row int, col, value string, cause error) error {
	return apperrors.NewParsingError(fmt.Sprintf("invalid %s value %q", col, value), cause).
		WithContext("path", t.Path).
		WithContext("row", row+1).
		WithContext("column", col)
}
