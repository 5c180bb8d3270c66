package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatPDF  ExportFormat = "pdf"
)

var ErrUnknownFormat = fmt.Errorf("export format must be csv, xlsx, or pdf")

func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnknownFormat
}

func (f ExportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/csv"
}

func (f ExportFormat) Filename(filter RangeFilter) string {
	name := "attendance"
	if filter.StartDate != "" {
		name += "_" + filter.StartDate
	}
	if filter.EndDate != "" {
		name += "_" + filter.EndDate
	}
	return name + "." + string(f)
}

var reportHeader = []string{"Date", "Employee ID", "Name", "Check In", "Check Out", "Status", "Notes", "Location"}

func reportRow(rec Record, loc *time.Location) []string {
	return []string{
		rec.Date,
		rec.EmployeeID,
		rec.EmployeeName,
		clock(rec.CheckIn, loc),
		clock(rec.CheckOut, loc),
		string(rec.Status),
		rec.Notes,
		rec.Location,
	}
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04:05")
}

// WriteReport renders records in the requested format. Times are shown in loc.
func WriteReport(w io.Writer, format ExportFormat, records []Record, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	switch format {
	case FormatXLSX:
		return writeXLSX(w, records, loc)
	case FormatPDF:
		return writePDF(w, records, loc)
	}
	return writeCSV(w, records, loc)
}

func writeCSV(w io.Writer, records []Record, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(reportRow(rec, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, records []Record, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attendance"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", toCells(reportHeader)); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, toCells(reportRow(rec, loc))); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func toCells(values []string) *[]any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &cells
}

var pdfColumnWidths = []float64{24, 26, 48, 22, 22, 24, 66, 45}

func writePDF(w io.Writer, records []Record, loc *time.Location) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Attendance Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 9)
	for i, title := range reportHeader {
		pdf.CellFormat(pdfColumnWidths[i], 7, title, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, rec := range records {
		for i, value := range reportRow(rec, loc) {
			pdf.CellFormat(pdfColumnWidths[i], 6, truncate(value, pdfColumnWidths[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf.Output(w)
}

// truncate keeps a cell on one line, roughly two characters per millimetre at 9pt.
func truncate(value string, width float64) string {
	limit := int(width / 2)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "~"
}
