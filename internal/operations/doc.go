// Package operations manages validation runs started from the API or the
// CLI.
//
// Manager serializes runs: the browser writes every export into the same
// download directory, so a second run is rejected with a conflict (Submit)
// or waits for the first to finish (Run). Every run is tracked as a
// RunState in a RunStore; ProgressTracker feeds runner progress into the
// state and out to the WebSocket hub.
//
// Example usage:
//
//	mgr := operations.NewManager(executor, operations.NewMemoryRunStore(), hub, exp, 30*time.Minute, logger)
//	run, err := mgr.Submit(validation.RunRequest{Customer: "Acme", ExportKind: "sticket", Environment: "CERT"})
package operations
