package validation

import (
	"time"

	apperrors "exportcheck/internal/errors"
)

// Outcome summarizes a run for listings and metrics
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
	OutcomeError  Outcome = "error"
)

// RunMeta identifies a validation run
type RunMeta struct {
	RunID       string      `json:"run_id"`
	Customer    string      `json:"customer"`
	ExportKind  ExportKind  `json:"export_kind"`
	Environment Environment `json:"environment"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
}

// MatchCounts tallies a MatchMatrix
type MatchCounts struct {
	Match       int `json:"match"`
	Mismatch    int `json:"mismatch"`
	NotCompared int `json:"not_compared"`
}

// ValidationReport is the immutable result of one run
type ValidationReport struct {
	RunMeta

	Outcome     Outcome             `json:"outcome"`
	Entries     []LogEntry          `json:"entries"`
	FailedCases []FailedCase        `json:"failed_cases,omitempty"`
	Columns     []string            `json:"columns"`
	Missing     []string            `json:"missing_columns,omitempty"`
	SampleRows  [][]string          `json:"sample_rows"`
	Matrix      *MatchMatrix        `json:"matrix,omitempty"`
	Counts      MatchCounts         `json:"counts"`
	Error       string              `json:"error,omitempty"`
	ErrorType   apperrors.ErrorType `json:"error_type,omitempty"`
}

// NewValidationReport assembles a report from whatever the run produced.
// table and matrix may be nil when the run stopped early.
func NewValidationReport(meta RunMeta, log *LogCollector, table *ParsedTable, matrix *MatchMatrix, runErr error) *ValidationReport {
	r := &ValidationReport{
		RunMeta:    meta,
		Columns:    []string{},
		SampleRows: [][]string{},
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	if log != nil {
		r.Entries = log.Entries()
		r.FailedCases = log.Failures()
	}

	if table != nil {
		r.Columns = append(r.Columns, table.Columns...)
		r.Missing = append([]string(nil), table.Missing...)
		for _, row := range table.Rows {
			r.SampleRows = append(r.SampleRows, append([]string(nil), row...))
		}
	}

	if matrix != nil {
		cp := &MatchMatrix{Columns: append([]string(nil), matrix.Columns...), Cells: make([][]MatchState, len(matrix.Cells))}
		for i, row := range matrix.Cells {
			cp.Cells[i] = append([]MatchState(nil), row...)
		}
		r.Matrix = cp
		r.Counts.Match, r.Counts.Mismatch, r.Counts.NotCompared = cp.Counts()
	}

	switch {
	case runErr != nil:
		r.Outcome = OutcomeError
		r.Error = runErr.Error()
		if appErr, ok := apperrors.AsAppError(runErr); ok {
			r.ErrorType = appErr.Type
		}
	case r.Counts.Mismatch > 0 || len(r.FailedCases) > 0:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomePassed
	}
	return r
}

// Cell returns the match state of a sample cell
func (r *ValidationReport) Cell(row, col int) MatchState {
	return r.Matrix.At(row, col)
}
