// Package validation implements the export validation engine.
//
// A run drives a remote export job to completion and checks what it produced:
//
//   - JobStatusPoller observes the job until it reaches a terminal status
//   - Ingest parses the downloaded delimited artifact into a ParsedTable,
//     recovering from undetected delimiters and repeated header rows
//   - ColumnSelector picks the columns relevant to the export kind and
//     never selects a sensitive column
//   - Reconcile compares sampled artifact rows with rows captured from the
//     rendered log page and produces a MatchMatrix
//   - NewValidationReport assembles the transcript, sample and matrix
//
// Browser interaction goes through the Session capability interfaces, so
// every step can be exercised with fakes. Each run owns a LogCollector; the
// transcript it holds is the audit trail embedded in the report.
//
// Runner.Run is the run boundary. Hard failures stop the run, the partial
// report is still returned, and the caller receives a single *errors.AppError.
package validation
