package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"exportcheck/internal/config"
	"exportcheck/internal/shared/testutil"
	"exportcheck/internal/validation"
)

var runStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	return &config.Paths{ReportsDir: filepath.Join(t.TempDir(), "reports")}
}

func sampleReport() *validation.ValidationReport {
	log := validation.NewLogCollector(nil).WithClock(testutil.FixedClock(runStart, time.Second))
	log.Info("Validation started")
	log.Success("Export completed")
	log.Failure("CSV='janedoe' vs UI='<john>'")

	table := &validation.ParsedTable{
		Columns: []string{"Username", "Case"},
		Rows:    [][]string{{"janedoe", "C-1"}, {"bob", "C-2"}},
		Missing: []string{"Due Date"},
	}
	matrix := validation.NewMatchMatrix(table.Columns, 2)
	matrix.Cells[0][0] = validation.Mismatch
	matrix.Cells[1][0] = validation.Match

	meta := validation.RunMeta{
		RunID:       "run-1",
		Customer:    "Acme Health",
		ExportKind:  validation.KindSticket,
		Environment: validation.EnvironmentCert,
		StartedAt:   runStart,
		FinishedAt:  runStart.Add(time.Minute),
	}
	return validation.NewValidationReport(meta, log, table, matrix, nil)
}

func TestFormatState(t *testing.T) {
	assert.Equal(t, "Match", formatState(validation.Match))
	assert.Equal(t, "Mismatch", formatState(validation.Mismatch))
	assert.Equal(t, "Not compared", formatState(validation.NotCompared))
	assert.Equal(t, "", formatTime(time.Time{}))
	assert.Equal(t, "2024-05-01 09:00:00", formatTime(runStart))
}

func TestCSVWriter_WriteReport(t *testing.T) {
	paths := testPaths(t)

	path, err := NewCSVWriter(paths).WriteReport(sampleReport(), "out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "out.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\ufeff")))

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Row", "Username", "Username (check)", "Case", "Case (check)"}, records[0])
	assert.Equal(t, []string{"1", "janedoe", "Mismatch", "C-1", "Not compared"}, records[1])
	assert.Equal(t, []string{"2", "bob", "Match", "C-2", "Not compared"}, records[2])
}

func TestCSVWriter_WriteCSVAbsolutePath(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "plain.csv")

	err := NewCSVWriter(testPaths(t)).WriteCSV(target, WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "x,y"}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\"x,y\"\n", string(data))
}

func TestWorkbookWriter_WriteReport(t *testing.T) {
	paths := testPaths(t)

	path, err := NewWorkbookWriter(paths).WriteReport(sampleReport(), "out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "out.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetSample, SheetLog}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", v)
	v, err = f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "failed", v)

	v, err = f.GetCellValue(SheetSample, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Username", v)
	v, err = f.GetCellValue(SheetSample, "A3")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	assertFill(t, f, "A2", "FFC7CE")
	assertFill(t, f, "A3", "C6EFCE")
	assertFill(t, f, "B2", "E7E6E6")

	rows, err := f.GetRows(SheetLog)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"2024-05-01 09:00:02", "failure", "CSV='janedoe' vs UI='<john>'"}, rows[3])
}

func assertFill(t *testing.T, f *excelize.File, cell, color string) {
	t.Helper()
	id, err := f.GetCellStyle(SheetSample, cell)
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color, cell)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), color, cell)
}

func TestHTMLWriter_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHTMLWriter(testPaths(t)).Render(&buf, sampleReport()))
	page := buf.String()

	assert.Contains(t, page, "Acme Health")
	assert.Contains(t, page, "[2024-05-01 09:00:00] Validation started")
	assert.Contains(t, page, `<a href="#entry-2">`)
	assert.Contains(t, page, "&lt;john&gt;")
	assert.NotContains(t, page, "<john>")
	assert.Contains(t, page, "Due Date")
	assert.Contains(t, page, "#FFC7CE")
	assert.Contains(t, page, `title="Not compared"`)
}

func TestHTMLWriter_EmptyReport(t *testing.T) {
	r := validation.NewValidationReport(validation.RunMeta{RunID: "r"}, nil, nil, nil, assert.AnError)

	var buf bytes.Buffer
	require.NoError(t, NewHTMLWriter(testPaths(t)).Render(&buf, r))

	assert.Contains(t, buf.String(), "No rows were sampled.")
	assert.Contains(t, buf.String(), assert.AnError.Error())
}

func TestExporter_WriteAll(t *testing.T) {
	paths := testPaths(t)
	logger, handler := testutil.NewTestLogger(t)
	r := sampleReport()

	files, err := New(paths, logger).WriteAll(r)
	require.NoError(t, err)

	assert.Equal(t, "acme-health_sticket_20240501-090000", files.Base)
	for _, p := range []string{files.HTML, files.XLSX, files.CSV} {
		assert.FileExists(t, p)
		assert.True(t, strings.HasPrefix(filepath.Base(p), files.Base))
	}
	assert.True(t, handler.ContainsMessage("report exported"))
}

func TestExporter_WriteAllUnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	paths := &config.Paths{ReportsDir: filepath.Join(blocker, "reports")}

	files, err := New(paths, nil).WriteAll(sampleReport())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "html")
	assert.Contains(t, err.Error(), "xlsx")
	assert.Contains(t, err.Error(), "csv")
	assert.Empty(t, files.HTML)
}
