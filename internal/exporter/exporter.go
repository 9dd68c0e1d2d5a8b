package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"exportcheck/internal/config"
	apperrors "exportcheck/internal/errors"
	"exportcheck/internal/validation"
)

// ReportFiles lists the files written for one report
type ReportFiles struct {
	Base string `json:"base"`
	HTML string `json:"html,omitempty"`
	XLSX string `json:"xlsx,omitempty"`
	CSV  string `json:"csv,omitempty"`
}

// Exporter writes every report format to the reports directory
type Exporter struct {
	paths    *config.Paths
	html     *HTMLWriter
	workbook *WorkbookWriter
	csv      *CSVWriter
	logger   *slog.Logger
}

// New creates an exporter for the given paths
func New(paths *config.Paths, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:    paths,
		html:     NewHTMLWriter(paths),
		workbook: NewWorkbookWriter(paths),
		csv:      NewCSVWriter(paths),
		logger:   logger.With(slog.String("component", "exporter")),
	}
}

// BaseName returns the file name stem shared by the report files of r
func BaseName(r *validation.ValidationReport) string {
	at := r.StartedAt
	if at.IsZero() {
		at = time.Now()
	}
	return config.ReportBaseName(r.Customer, string(r.ExportKind), at)
}

// WriteAll writes the HTML page, the workbook and the annotated CSV. A
// failing format does not stop the others; the returned error joins every
// failure and ReportFiles holds what was written.
func (e *Exporter) WriteAll(r *validation.ValidationReport) (ReportFiles, error) {
	files := ReportFiles{Base: BaseName(r)}

	var errs []error
	var err error
	if files.HTML, err = e.html.WriteReport(r, files.Base); err != nil {
		errs = append(errs, fmt.Errorf("html: %w", err))
	}
	if files.XLSX, err = e.workbook.WriteReport(r, files.Base); err != nil {
		errs = append(errs, fmt.Errorf("xlsx: %w", err))
	}
	if files.CSV, err = e.csv.WriteReport(r, files.Base); err != nil {
		errs = append(errs, fmt.Errorf("csv: %w", err))
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		e.logger.Error("report export incomplete",
			slog.String("run_id", r.RunID),
			slog.String("error", joined.Error()))
		return files, apperrors.NewStorageError("report export", joined)
	}

	e.logger.Info("report exported",
		slog.String("run_id", r.RunID),
		slog.String("base", files.Base),
		slog.String("outcome", string(r.Outcome)))
	return files, nil
}
