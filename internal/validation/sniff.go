package validation

import (
	"bytes"
	"strings"
)

// sniffCandidates are tried by DetectDelimiter, in preference order
var sniffCandidates = []rune{',', '\t', ';', '|', ':'}

// fallbackDelimiters re-split a record that parsed as a single field
var fallbackDelimiters = []rune{',', '|', ';', '\t'}

// DetectDelimiter guesses the field delimiter of a delimited text sample.
// A candidate qualifies when it occurs outside quotes the same non-zero
// number of times on every complete line; the most frequent qualifying
// candidate wins. ok is false when nothing qualifies.
func DetectDelimiter(sample []byte) (delim rune, ok bool) {
	lines := sampleLines(sample)
	if len(lines) == 0 {
		return 0, false
	}

	best, bestCount := rune(0), 0
	for _, c := range sniffCandidates {
		count := -1
		consistent := true
		for _, line := range lines {
			n := countUnquoted(line, c)
			if count == -1 {
				count = n
			} else if n != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = c, count
		}
	}
	return best, bestCount > 0
}

// sampleLines returns the non-blank complete lines of sample. The last line
// is dropped when the sample was cut mid-line.
func sampleLines(sample []byte) []string {
	text := strings.ReplaceAll(string(bytes.TrimPrefix(sample, bom)), "\r\n", "\n")
	parts := strings.Split(text, "\n")
	if len(parts) > 1 && !strings.HasSuffix(text, "\n") {
		parts = parts[:len(parts)-1]
	}

	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

func countUnquoted(line string, c rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}

// splitSingleField re-splits a record that came back as one field. It tries
// delim first and then the fallback list; the delimiter that worked is
// returned. changed is false when nothing split the field.
func splitSingleField(record []string, delim rune) (out []string, used rune, changed bool) {
	if len(record) != 1 {
		return record, delim, false
	}
	single := record[0]

	try := append([]rune{delim}, fallbackDelimiters...)
	for _, d := range try {
		if d == 0 || !strings.ContainsRune(single, d) {
			continue
		}
		fields := strings.Split(single, string(d))
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, d, true
	}
	return record, delim, false
}
