package admin

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

// BuildTelemetryXLSX renders a telemetry history page as a workbook.
func BuildTelemetryXLSX(records []telemetry.HistoryRecord) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "telemetry"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Robot")
	_ = f.SetCellValue(sheet, "B1", "Battery")
	_ = f.SetCellValue(sheet, "C1", "Status")
	_ = f.SetCellValue(sheet, "D1", "Lat")
	_ = f.SetCellValue(sheet, "E1", "Lng")
	_ = f.SetCellValue(sheet, "F1", "Created At")
	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), record.RobotID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), record.Battery)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), record.Status)
		if record.Lat != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *record.Lat)
		}
		if record.Lng != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), *record.Lng)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), record.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTelemetryPDF renders a telemetry history page as a table.
func BuildTelemetryPDF(records []telemetry.HistoryRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fleet Telemetry History")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(55, 6, "Robot", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Battery", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Position", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Created", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range records {
		position := "-"
		if record.Lat != nil && record.Lng != nil {
			position = fmt.Sprintf("%.4f, %.4f", *record.Lat, *record.Lng)
		}
		pdf.CellFormat(55, 6, record.RobotID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", record.Battery), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, record.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, position, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, record.CreatedAt.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
