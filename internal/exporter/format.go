package exporter

import (
	"time"

	"exportcheck/internal/validation"
)

const timeLayout = "2006-01-02 15:04:05"

// formatState renders a cell comparison result for people
func formatState(s validation.MatchState) string {
	switch s {
	case validation.Match:
		return "Match"
	case validation.Mismatch:
		return "Mismatch"
	default:
		return "Not compared"
	}
}

// stateColor is the fill used for a cell comparison result
func stateColor(s validation.MatchState) string {
	switch s {
	case validation.Match:
		return "#C6EFCE"
	case validation.Mismatch:
		return "#FFC7CE"
	default:
		return "#E7E6E6"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
