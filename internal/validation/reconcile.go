package validation

import "strings"

// SecondSourceSnapshot holds rows captured from the rendered log page,
// aligned with the selected artifact columns.
type SecondSourceSnapshot struct {
	Rows [][]string `json:"rows"`
	// Mapped marks the columns found on the page. A nil slice means all are.
	Mapped []bool `json:"mapped,omitempty"`
}

func (s *SecondSourceSnapshot) mapped(col int) bool {
	if s.Mapped == nil {
		return true
	}
	return col < len(s.Mapped) && s.Mapped[col]
}

// Reconcile compares sampled artifact rows with the snapshot row at the same
// position. Cells without a counterpart row or column stay NotCompared. Every
// comparison is recorded on log.
func Reconcile(sample [][]string, snapshot *SecondSourceSnapshot, columns []string, log *LogCollector) *MatchMatrix {
	if log == nil {
		log = NewLogCollector(nil)
	}
	m := NewMatchMatrix(columns, len(sample))
	if snapshot == nil {
		log.Info("No second source captured; sample rows are not compared.")
		return m
	}

	for i, row := range sample {
		if i >= len(snapshot.Rows) {
			log.Notice("Row %d has no counterpart in the second source; not compared.", i+1)
			continue
		}
		other := snapshot.Rows[i]

		for j, col := range columns {
			if !snapshot.mapped(j) {
				continue
			}
			sampled := normalizeCell(cellAt(row, j))
			seen := normalizeCell(cellAt(other, j))

			if CellMatches(cellAt(row, j), cellAt(other, j)) {
				m.Cells[i][j] = Match
				log.Success("Row %d, column '%s' matches: '%s'", i+1, col, sampled)
			} else {
				m.Cells[i][j] = Mismatch
				log.Failure("Row %d, column '%s' mismatch: CSV='%s' vs UI='%s'", i+1, col, sampled, seen)
			}
		}
	}
	return m
}

// CellMatches reports whether the second-source value, normalized, occurs in
// the normalized sampled value. The rendered page may truncate long text.
func CellMatches(sampled, secondSource string) bool {
	return strings.Contains(normalizeCell(sampled), normalizeCell(secondSource))
}

// normalizeCell case-folds and removes all whitespace
func normalizeCell(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func cellAt(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}
