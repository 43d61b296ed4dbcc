package httpapi

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"care-session-service/internal/repository"
)

// SessionReportHeader is the column order for both CSV and XLSX downloads.
var SessionReportHeader = []string{
	"Session Code",
	"Patient",
	"Caregiver",
	"Check In",
	"Check Out",
	"Status",
	"Duration (min)",
	"Rating",
	"Patient Feedback",
	"Caregiver Notes",
}

func reportCells(row *repository.SessionReportRow) []string {
	checkOut := ""
	if row.CheckOutTime != nil {
		checkOut = row.CheckOutTime.UTC().Format("2006-01-02 15:04:05")
	}
	duration := ""
	if row.DurationMinutes != nil {
		duration = strconv.Itoa(*row.DurationMinutes)
	}
	rating := ""
	if row.Rating != nil {
		rating = strconv.Itoa(*row.Rating)
	}
	return []string{
		row.SessionCode,
		row.PatientName,
		row.CaregiverName,
		row.CheckInTime.UTC().Format("2006-01-02 15:04:05"),
		checkOut,
		string(row.Status),
		duration,
		rating,
		row.PatientFeedback,
		row.CaregiverNotes,
	}
}

// GenerateSessionReportCSV renders report rows as CSV.
func GenerateSessionReportCSV(rows []*repository.SessionReportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(SessionReportHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(reportCells(row)); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateSessionReportXLSX renders report rows as a styled workbook.
func GenerateSessionReportXLSX(rows []*repository.SessionReportRow) ([]byte, error) {
	f := excelize.NewFile()
	// Don't defer Close(); WriteTo needs the file open.

	sheetName := "Care Sessions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SessionReportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{12, 25, 25, 20, 20, 12, 14, 8, 40, 40}
	for i := range SessionReportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, row := range rows {
		for colIdx, value := range reportCells(row) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func downloadFilename(prefix, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().UTC().Format("20060102_150405"), ext)
}
