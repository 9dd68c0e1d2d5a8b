package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"exportcheck/internal/config"
	"exportcheck/internal/validation"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths *config.Paths
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	slog.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), config.DirMode); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.ReportFileMode)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReport writes the annotated sample of r to <base>.csv and returns
// the full path. Every column is followed by its comparison result.
func (w *CSVWriter) WriteReport(r *validation.ValidationReport, base string) (string, error) {
	headers, records := annotatedSample(r)
	name := base + ".csv"
	if err := w.WriteCSV(name, WriteOptions{Headers: headers, Records: records, BOMPrefix: true}); err != nil {
		return "", err
	}
	return w.resolvePath(name), nil
}

func annotatedSample(r *validation.ValidationReport) ([]string, [][]string) {
	headers := make([]string, 0, 1+2*len(r.Columns))
	headers = append(headers, "Row")
	for _, c := range r.Columns {
		headers = append(headers, c, c+" (check)")
	}

	records := make([][]string, 0, len(r.SampleRows))
	for i, row := range r.SampleRows {
		rec := make([]string, 0, len(headers))
		rec = append(rec, strconv.Itoa(i+1))
		for j := range r.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			rec = append(rec, val, formatState(r.Cell(i, j)))
		}
		records = append(records, rec)
	}
	return headers, records
}

// resolvePath places relative names in the reports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}
