package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"exportcheck/internal/config"
	"exportcheck/internal/validation"
)

// Sheet names of the report workbook
const (
	SheetSummary = "Summary"
	SheetSample  = "Sample"
	SheetLog     = "Log"
)

// WorkbookWriter writes reports as XLSX workbooks
type WorkbookWriter struct {
	paths *config.Paths
}

// NewWorkbookWriter creates a workbook writer rooted at the reports directory
func NewWorkbookWriter(paths *config.Paths) *WorkbookWriter {
	return &WorkbookWriter{paths: paths}
}

type workbookStyles struct {
	header int
	states map[validation.MatchState]int
	levels map[validation.Level]int
}

func newWorkbookStyles(f *excelize.File) (*workbookStyles, error) {
	s := &workbookStyles{
		states: make(map[validation.MatchState]int),
		levels: make(map[validation.Level]int),
	}

	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, err
	}

	for _, st := range []validation.MatchState{validation.Match, validation.Mismatch, validation.NotCompared} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{stateColor(st)}},
		})
		if err != nil {
			return nil, err
		}
		s.states[st] = id
	}

	for level, color := range map[validation.Level]string{
		validation.LevelSuccess: "#006100",
		validation.LevelFailure: "#9C0006",
		validation.LevelNotice:  "#9C5700",
	} {
		id, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: color}})
		if err != nil {
			return nil, err
		}
		s.levels[level] = id
	}
	return s, nil
}

// WriteReport writes r to <base>.xlsx and returns the full path
func (w *WorkbookWriter) WriteReport(r *validation.ValidationReport, base string) (string, error) {
	fullPath := w.paths.GetReportPath(base + ".xlsx")

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		return "", fmt.Errorf("failed to create workbook styles: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return "", err
	}
	if err := writeSummarySheet(f, styles, r); err != nil {
		return "", fmt.Errorf("failed to write summary sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSample); err != nil {
		return "", err
	}
	if err := writeSampleSheet(f, styles, r); err != nil {
		return "", fmt.Errorf("failed to write sample sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetLog); err != nil {
		return "", err
	}
	if err := writeLogSheet(f, styles, r); err != nil {
		return "", fmt.Errorf("failed to write log sheet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), config.DirMode); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("Wrote report workbook",
		slog.String("path", fullPath),
		slog.Int("rows", len(r.SampleRows)))
	return fullPath, nil
}

func writeSummarySheet(f *excelize.File, styles *workbookStyles, r *validation.ValidationReport) error {
	rows := [][]any{
		{"Run ID", r.RunID},
		{"Customer", r.Customer},
		{"Export", string(r.ExportKind)},
		{"Environment", string(r.Environment)},
		{"Started", formatTime(r.StartedAt)},
		{"Finished", formatTime(r.FinishedAt)},
		{"Outcome", string(r.Outcome)},
		{"Matches", r.Counts.Match},
		{"Mismatches", r.Counts.Mismatch},
		{"Not compared", r.Counts.NotCompared},
		{"Failed steps", len(r.FailedCases)},
	}
	if r.Error != "" {
		rows = append(rows, []any{"Error", r.Error})
	}
	for _, m := range r.Missing {
		rows = append(rows, []any{"Missing column", m})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(rows)), styles.header); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "B", 24)
}

func writeSampleSheet(f *excelize.File, styles *workbookStyles, r *validation.ValidationReport) error {
	for j, name := range r.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetSample, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSample, cell, cell, styles.header); err != nil {
			return err
		}
	}

	for i, row := range r.SampleRows {
		for j := range r.Columns {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			val := ""
			if j < len(row) {
				val = row[j]
			}
			if err := f.SetCellStr(SheetSample, cell, val); err != nil {
				return err
			}
			if err := f.SetCellStyle(SheetSample, cell, cell, styles.states[r.Cell(i, j)]); err != nil {
				return err
			}
		}
	}

	if len(r.Columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(r.Columns))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetSample, "A", last, 20); err != nil {
			return err
		}
	}
	return nil
}

func writeLogSheet(f *excelize.File, styles *workbookStyles, r *validation.ValidationReport) error {
	header := []any{"Time", "Level", "Message"}
	if err := f.SetSheetRow(SheetLog, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetLog, "A1", "C1", styles.header); err != nil {
		return err
	}

	for i, e := range r.Entries {
		row := []any{formatTime(e.Time), string(e.Level), e.Message}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(SheetLog, cell, &row); err != nil {
			return err
		}
		if style, ok := styles.levels[e.Level]; ok {
			if err := f.SetCellStyle(SheetLog, cell, fmt.Sprintf("C%d", i+2), style); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(SheetLog, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(SheetLog, "C", "C", 80)
}
