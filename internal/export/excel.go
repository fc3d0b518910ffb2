package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/resume-screener/internal/models"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

var statusFills = map[models.MatchStatus]string{
	models.StatusApproved:         "C6EFCE",
	models.StatusNeedsImprovement: "FFEB9C",
	models.StatusNotAMatch:        "FFC7CE",
	models.StatusError:            "D9D9D9",
}

// ReportWorkbook renders a completed batch report as an XLSX document.
func ReportWorkbook(report models.BatchReportResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeSummarySheet(f, report); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := writeCandidatesSheet(f, report.Results); err != nil {
		return nil, fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveReport writes the workbook to outputPath, adding .xlsx if missing.
func SaveReport(report models.BatchReportResponse, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	data, err := ReportWorkbook(report)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}
	return outputPath, nil
}

func writeSummarySheet(f *excelize.File, report models.BatchReportResponse) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	counts := make(map[models.MatchStatus]int)
	for _, r := range report.Results {
		counts[r.Status]++
	}

	rows := [][]any{
		{"Batch", report.BatchID},
		{"Job", report.JobTitle},
		{"Total Processed", report.TotalProcessed},
		{"Average Score", report.AverageScore},
		{"Approved", counts[models.StatusApproved]},
		{"Needs Improvement", counts[models.StatusNeedsImprovement]},
		{"Not a Match", counts[models.StatusNotAMatch]},
		{"Errors", counts[models.StatusError]},
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, labelStyle); err != nil {
			return err
		}
	}

	return f.SetColWidth(summarySheet, "A", "B", 24)
}

func writeCandidatesSheet(f *excelize.File, results []models.MatchResult) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	headers := []any{"Rank", "File", "Score", "Status", "Matching Skills", "Missing Skills", "Implied Skills", "Strengths", "Recommendations"}
	if err := f.SetSheetRow(candidatesSheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(candidatesSheet, "A1", "I1", headerStyle); err != nil {
		return err
	}

	styles := make(map[models.MatchStatus]int, len(statusFills))
	for status, color := range statusFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		styles[status] = style
	}

	for i, r := range results {
		rowNum := i + 2
		row := []any{
			i + 1,
			r.FileName,
			r.MatchScore,
			string(r.Status),
			strings.Join(r.MatchingSkills, ", "),
			strings.Join(r.MissingSkills, ", "),
			r.ImpliedSkills,
			strings.Join(r.Strengths, "; "),
			strings.Join(r.Recommendations, "; "),
		}

		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		end, _ := excelize.CoordinatesToCellName(len(row), rowNum)
		if err := f.SetSheetRow(candidatesSheet, start, &row); err != nil {
			return err
		}
		if style, ok := styles[r.Status]; ok {
			if err := f.SetCellStyle(candidatesSheet, start, end, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(candidatesSheet, "B", "B", 28); err != nil {
		return err
	}
	return f.SetColWidth(candidatesSheet, "E", "I", 40)
}
