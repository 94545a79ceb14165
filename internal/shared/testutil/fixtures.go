package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes a header and rows to dir/name and returns the path
func WriteCSV(t *testing.T, dir, name string, header []string, rows ...[]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write fixture header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write fixture rows: %v", err)
	}
	return path
}

// WriteXLSX writes a single-sheet workbook to dir/name. titleRows blank-padded
// rows precede the header.
func WriteXLSX(t *testing.T, dir, name string, titleRows int, header []string, rows ...[]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	line := 1
	for i := 0; i < titleRows; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetCellValue(sheet, cell, "Report title"); err != nil {
			t.Fatalf("write title: %v", err)
		}
		line++
	}
	for _, row := range append([][]string{header}, rows...) {
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row: %v", err)
		}
		line++
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save fixture %s: %v", path, err)
	}
	return path
}

// WriteText writes raw content to dir/name and returns the path
func WriteText(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
