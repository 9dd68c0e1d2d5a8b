// Package shared holds code used by more than one package that has no
// domain logic of its own.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler for capturing and asserting on log records
//	- FakeSleeper for polling loops that would otherwise wait in real time
//	- FixedClock for deterministic timestamps
//	- WriteFile for staging download artifacts with a chosen mtime
//
// Example usage:
//
//	func TestPoll(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    sleeper := &testutil.FakeSleeper{}
//	    // ...
//	    testutil.AssertLogContains(t, handler, slog.LevelInfo, "export ready")
//	}
package shared
