package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/S-poovarasan/College-Fund-Management/internal/models"
)

// ExcelRenderer renders a report snapshot as an xlsx workbook with a summary
// sheet and a flat transaction sheet.
type ExcelRenderer struct {
	institution string
}

// NewExcelRenderer creates a new Excel renderer
func NewExcelRenderer(institution string) *ExcelRenderer {
	return &ExcelRenderer{institution: institution}
}

// Render produces the workbook bytes
func (r *ExcelRenderer) Render(snapshot *models.ReportSnapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	f.SetCellValue(summary, "A1", r.institution)
	f.SetCellStyle(summary, "A1", "A1", bold)
	f.SetCellValue(summary, "A2", fmt.Sprintf("Scope: %s  Window: %s", snapshot.Scope, snapshot.Window))
	f.SetCellValue(summary, "A3", fmt.Sprintf("Period: %s - %s",
		snapshot.StartDate.Format("2006-01-02"),
		snapshot.EndDate.Format("2006-01-02")))

	f.SetCellValue(summary, "A5", "Total Allocated")
	f.SetCellValue(summary, "B5", snapshot.Allocated.InexactFloat64())
	f.SetCellValue(summary, "A6", "Total Utilized")
	f.SetCellValue(summary, "B6", snapshot.Utilized.InexactFloat64())
	f.SetCellValue(summary, "A7", "Net Balance")
	f.SetCellValue(summary, "B7", snapshot.Balance.InexactFloat64())

	headers := []string{"Department", "Allocated", "Utilized", "Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 9)
		f.SetCellValue(summary, cell, h)
		f.SetCellStyle(summary, cell, cell, bold)
	}
	for i, dept := range snapshot.Departments {
		row := 10 + i
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), dept.DepartmentName)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), dept.Allocated.InexactFloat64())
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), dept.Utilized.InexactFloat64())
		f.SetCellValue(summary, fmt.Sprintf("D%d", row), dept.Balance.InexactFloat64())
	}

	const txSheet = "Transactions"
	if _, err := f.NewSheet(txSheet); err != nil {
		return nil, fmt.Errorf("failed to create transactions sheet: %w", err)
	}

	txHeaders := []string{"Department", "Date", "Bill No", "Purpose", "Amount", "Status"}
	for i, h := range txHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(txSheet, cell, h)
		f.SetCellStyle(txSheet, cell, cell, bold)
	}

	row := 2
	for _, dept := range snapshot.Departments {
		for _, entry := range dept.Transactions {
			f.SetCellValue(txSheet, fmt.Sprintf("A%d", row), dept.DepartmentName)
			f.SetCellValue(txSheet, fmt.Sprintf("B%d", row), entry.BillDate.Format("2006-01-02"))
			f.SetCellValue(txSheet, fmt.Sprintf("C%d", row), entry.BillNo)
			f.SetCellValue(txSheet, fmt.Sprintf("D%d", row), entry.Purpose)
			f.SetCellValue(txSheet, fmt.Sprintf("E%d", row), entry.Amount.InexactFloat64())
			f.SetCellValue(txSheet, fmt.Sprintf("F%d", row), entry.Status)
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}
