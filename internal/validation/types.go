package validation

import (
	"fmt"
	"strings"
	"time"
)

// Environment selects which remote deployment a run logs into
type Environment string

const (
	EnvironmentCert Environment = "CERT"
	EnvironmentProd Environment = "PROD"
)

// ParseEnvironment accepts cert/prod in any case
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToUpper(strings.TrimSpace(s))) {
	case EnvironmentCert:
		return EnvironmentCert, nil
	case EnvironmentProd:
		return EnvironmentProd, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// Section returns the locator section holding the environment's URLs
func (e Environment) Section() string {
	return strings.ToLower(string(e))
}

// MatchState is the outcome of comparing one sampled cell
type MatchState int

const (
	NotCompared MatchState = iota
	Match
	Mismatch
)

// String implements fmt.Stringer
func (m MatchState) String() string {
	switch m {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "not_compared"
	}
}

// MarshalText renders the state by name in JSON reports
func (m MatchState) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParsedTable is the ingested artifact restricted to the selected columns
type ParsedTable struct {
	// Headers is the full header row of the artifact
	Headers []string `json:"headers"`
	// Selected holds indices into Headers, in display order
	Selected []int `json:"selected"`
	// Columns holds the original header text of the selected indices
	Columns []string `json:"columns"`
	// Rows holds sampled rows, each len(Columns) long
	Rows [][]string `json:"rows"`

	// Missing lists desired columns absent from Headers
	Missing []string `json:"missing,omitempty"`

	Delimiter         string `json:"delimiter"`
	SkippedHeaderRows int    `json:"skipped_header_rows"`
}

// MatchMatrix holds one MatchState per sampled cell, aligned with Columns
type MatchMatrix struct {
	Columns []string       `json:"columns"`
	Cells   [][]MatchState `json:"cells"`
}

// NewMatchMatrix returns a rows x len(columns) matrix with every cell NotCompared
func NewMatchMatrix(columns []string, rows int) *MatchMatrix {
	m := &MatchMatrix{
		Columns: append([]string(nil), columns...),
		Cells:   make([][]MatchState, rows),
	}
	for i := range m.Cells {
		m.Cells[i] = make([]MatchState, len(columns))
	}
	return m
}

// At returns the state of a cell, NotCompared when out of range
func (m *MatchMatrix) At(row, col int) MatchState {
	if m == nil || row < 0 || row >= len(m.Cells) || col < 0 || col >= len(m.Cells[row]) {
		return NotCompared
	}
	return m.Cells[row][col]
}

// Counts tallies the matrix by state
func (m *MatchMatrix) Counts() (match, mismatch, notCompared int) {
	if m == nil {
		return 0, 0, 0
	}
	for _, row := range m.Cells {
		for _, cell := range row {
			switch cell {
			case Match:
				match++
			case Mismatch:
				mismatch++
			default:
				notCompared++
			}
		}
	}
	return match, mismatch, notCompared
}

// Level classifies a transcript entry
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelFailure Level = "failure"
	LevelNotice  Level = "notice"
)

// LogEntry is one line of a run transcript
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// String renders the entry the way it appears in the report
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("2006-01-02 15:04:05"), e.Message)
}

// FailedCase points at a failure entry of the transcript
type FailedCase struct {
	Index int      `json:"index"`
	Entry LogEntry `json:"entry"`
}
