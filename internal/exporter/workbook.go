package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"acceptcli/internal/acceptance"
	apperrors "acceptcli/internal/errors"
	"acceptcli/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetStatistics  = "Statistics"
	SheetCategories  = "Categories"
	SheetComparisons = "Comparisons"
)

var categoryColumns = []string{
	"criteria_number",
	"category",
	"tolerance",
	"matched",
	"percent_rmse",
	"result",
}

// WriteStatisticsWorkbook writes per criterion statistics, roadway category
// results and every comparison record to an XLSX workbook
func WriteStatisticsWorkbook(path string, stats []acceptance.Statistics, records []domain.ComparisonRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetStatistics); err != nil {
		return workbookError(path, err)
	}
	for _, name := range []string{SheetCategories, SheetComparisons} {
		if _, err := f.NewSheet(name); err != nil {
			return workbookError(path, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return workbookError(path, err)
	}

	statRows := make([][]interface{}, 0, len(stats))
	var categoryRows [][]interface{}
	for _, s := range stats {
		statRows = append(statRows, []interface{}{
			s.CriteriaNumber, s.CriteriaName, s.Records, s.Matched, s.ObservedOnly, s.SimulatedOnly,
			s.RMSE, s.PercentRMSE, s.MeanObserved, s.MeanSimulated,
		})
		for _, c := range s.Categories {
			categoryRows = append(categoryRows, []interface{}{
				s.CriteriaNumber, c.Category, c.Tolerance, c.Matched, c.PercentRMSE, formatBool(c.Pass),
			})
		}
	}

	recordRows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		row := make([]interface{}, 0, len(domain.ComparisonColumns))
		for _, v := range r.Values() {
			row = append(row, v)
		}
		row[0] = r.CriteriaNumber
		row[8] = optionalCell(r.ObservedOutcome)
		row[9] = optionalCell(r.SimulatedOutcome)
		recordRows = append(recordRows, row)
	}

	sheets := []struct {
		name    string
		columns []string
		rows    [][]interface{}
	}{
		{SheetStatistics, acceptance.StatisticsColumns, statRows},
		{SheetCategories, categoryColumns, categoryRows},
		{SheetComparisons, domain.ComparisonColumns, recordRows},
	}
	for _, sh := range sheets {
		if err := writeSheet(f, sh.name, header, sh.columns, sh.rows); err != nil {
			return workbookError(path, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return workbookError(path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, columns []string, rows [][]interface{}) error {
	head := make([]interface{}, len(columns))
	for i, c := range columns {
		head[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

// optionalCell leaves nil outcomes as empty cells
func optionalCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func workbookError(path string, err error) error {
	return apperrors.NewStorageError(fmt.Sprintf("failed to write statistics workbook %s", path), err)
}
