package reconcile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reconciliation"

func buildXLSX(report *DailyReport) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Daily reconciliation: %s", report.Date))
	_ = f.MergeCell(sheetName, "A1", "D1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	headers := []string{"Closer", "Cash", "POS", "Total"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 3
	for _, totals := range report.Rows {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), totals.Closer)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), minorToMajor(totals.Cash))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), minorToMajor(totals.POS))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), minorToMajor(totals.Total))
		row++
	}

	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), minorToMajor(report.TotalCash))
	_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), minorToMajor(report.TotalPOS))
	_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), minorToMajor(report.Total))
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), headerStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "D", 15)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func minorToMajor(amount int64) float64 {
	return float64(amount) / 100
}

// WriteXLSX streams the report as an xlsx workbook, e.g. into an HTTP
// response body.
func WriteXLSX(report *DailyReport, w io.Writer) error {
	f, err := buildXLSX(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// SaveXLSX writes the report into dir and returns the file path.
func SaveXLSX(report *DailyReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := buildXLSX(report)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, fmt.Sprintf("reconciliation_%s.xlsx", report.Date))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}
	return filePath, nil
}
