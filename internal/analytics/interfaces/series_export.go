package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analytics "agrisense-cloud/internal/analytics/domain"
)

// BuildSeriesPDF renders a minimal PDF for an aggregated series result.
func BuildSeriesPDF(query analytics.SeriesQuery, groups []analytics.SeriesGroup) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Historical Series")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Organization: %s", query.OrganizationID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Site: %s", query.SiteID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Range: %s - %s", query.Start.Format(time.RFC3339), query.End.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Interval: %s", query.Interval))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Aggregation: %s", query.Aggregation))
	pdf.Ln(8)

	for _, group := range groups {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("Zone %s / %s", group.ZoneID, group.Field))
		pdf.Ln(7)

		pdf.CellFormat(60, 6, "Bucket", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Samples", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, point := range group.Points {
			pdf.CellFormat(60, 6, point.Bucket.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", point.Value), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%d", point.Count), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSeriesXLSX renders a minimal XLSX for an aggregated series result, one
// summary sheet plus a points sheet.
func BuildSeriesXLSX(query analytics.SeriesQuery, groups []analytics.SeriesGroup) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	pointsSheet := "points"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(pointsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Historical Series")
	_ = f.SetCellValue(summarySheet, "A3", "Organization")
	_ = f.SetCellValue(summarySheet, "B3", query.OrganizationID)
	_ = f.SetCellValue(summarySheet, "A4", "Site")
	_ = f.SetCellValue(summarySheet, "B4", query.SiteID)
	_ = f.SetCellValue(summarySheet, "A5", "Start")
	_ = f.SetCellValue(summarySheet, "B5", query.Start.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "End")
	_ = f.SetCellValue(summarySheet, "B6", query.End.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A7", "Interval")
	_ = f.SetCellValue(summarySheet, "B7", string(query.Interval))
	_ = f.SetCellValue(summarySheet, "A8", "Aggregation")
	_ = f.SetCellValue(summarySheet, "B8", string(query.Aggregation))

	_ = f.SetCellValue(pointsSheet, "A1", "Zone")
	_ = f.SetCellValue(pointsSheet, "B1", "Field")
	_ = f.SetCellValue(pointsSheet, "C1", "Bucket")
	_ = f.SetCellValue(pointsSheet, "D1", "Value")
	_ = f.SetCellValue(pointsSheet, "E1", "Samples")
	row := 2
	for _, group := range groups {
		for _, point := range group.Points {
			_ = f.SetCellValue(pointsSheet, fmt.Sprintf("A%d", row), group.ZoneID)
			_ = f.SetCellValue(pointsSheet, fmt.Sprintf("B%d", row), group.Field)
			_ = f.SetCellValue(pointsSheet, fmt.Sprintf("C%d", row), point.Bucket.Format(time.RFC3339))
			_ = f.SetCellValue(pointsSheet, fmt.Sprintf("D%d", row), point.Value)
			_ = f.SetCellValue(pointsSheet, fmt.Sprintf("E%d", row), point.Count)
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
