// Package report renders SLA compliance figures as spreadsheet downloads.
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/helpdesk-service/internal/evaluator"
)

// ComplianceSheet is the name of the worksheet holding the rule rows.
const ComplianceSheet = "Compliance"

var complianceColumns = []string{"Rule", "Matched Tickets", "Breached", "Compliance %"}

// ComplianceWorkbook renders one row per rule, in the order given, followed by
// a generated-at footer. It returns the xlsx bytes and a download file name.
func ComplianceWorkbook(reports []evaluator.ComplianceReport, generatedAt time.Time) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ComplianceSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, "", err
	}

	for i, col := range complianceColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(ComplianceSheet, cell, col); err != nil {
			return nil, "", err
		}
		_ = f.SetCellStyle(ComplianceSheet, cell, cell, headerStyle)
	}

	for rowIdx, r := range reports {
		row := []any{r.RuleName, r.Total, r.Breached, r.Compliance}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(ComplianceSheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	footer, _ := excelize.CoordinatesToCellName(1, len(reports)+3)
	if err := f.SetCellValue(ComplianceSheet, footer, "Generated "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, "", err
	}

	for i := range complianceColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(ComplianceSheet, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("sla-compliance-%s.xlsx", generatedAt.UTC().Format("20060102-1504"))
	return buffer.Bytes(), filename, nil
}
