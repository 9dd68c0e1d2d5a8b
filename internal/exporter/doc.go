// Package exporter renders validation reports to files.
//
// Three writers share the report directory layout:
//
// CSVWriter: the annotated sample as CSV with a UTF-8 BOM so Excel opens
// it correctly.
//
// WorkbookWriter: an XLSX workbook with a summary sheet, the sample sheet
// coloured per comparison result, and the run transcript.
//
// HTMLWriter: a standalone HTML page with the transcript, the failed cases
// index and the coloured sample table.
//
// Example usage:
//
//	exp := exporter.New(paths, logger)
//	files, err := exp.WriteAll(report)
package exporter
