package validation

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "exportcheck/internal/errors"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

const (
	// SampleCap is the number of data rows kept from an artifact
	SampleCap = 10
	// DefaultSniffBytes is the size of the delimiter detection sample
	DefaultSniffBytes = 8192
)

// CsvIngester parses export artifacts into sampled tables
type CsvIngester struct {
	selector   *ColumnSelector
	sniffBytes int
}

// NewCsvIngester creates an ingester. A non-positive sniffBytes uses the default.
func NewCsvIngester(selector *ColumnSelector, sniffBytes int) *CsvIngester {
	if selector == nil {
		selector = DefaultColumnSelector()
	}
	if sniffBytes <= 0 {
		sniffBytes = DefaultSniffBytes
	}
	return &CsvIngester{selector: selector, sniffBytes: sniffBytes}
}

// IngestFile opens path and ingests it
func (ing *CsvIngester) IngestFile(path string, kind ExportKind, log *LogCollector) (*ParsedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewEmptyArtifactError(err).WithContext("path", path)
	}
	defer f.Close()
	return ing.Ingest(f, kind, log)
}

// Ingest reads the header row, resolves the columns for kind and samples
// up to the cap of data rows. Rows that repeat the header on the selected
// columns are skipped and do not count toward the cap.
func (ing *CsvIngester) Ingest(r io.Reader, kind ExportKind, log *LogCollector) (*ParsedTable, error) {
	if log == nil {
		log = NewLogCollector(nil)
	}

	br := bufio.NewReaderSize(r, ing.sniffBytes)
	sample, err := br.Peek(ing.sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, apperrors.NewEmptyArtifactError(err)
	}
	if bytes.HasPrefix(sample, bom) {
		if _, err := br.Discard(len(bom)); err != nil {
			return nil, apperrors.NewEmptyArtifactError(err)
		}
		sample = sample[len(bom):]
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return nil, apperrors.NewEmptyArtifactError(nil)
	}

	delim, ok := DetectDelimiter(sample)
	if !ok {
		delim = ','
		log.Notice("Could not detect the CSV delimiter, defaulting to comma.")
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewEmptyArtifactError(nil)
	}
	if err != nil {
		return nil, apperrors.NewMalformedArtifactError("failed to read header row", err)
	}

	header, delim = recoverRecord(header, delim, "header", log)
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	sel := ing.selector.Resolve(header, kind, log)
	table := &ParsedTable{
		Headers:  header,
		Selected: sel.Indices,
		Columns:  sel.Names,
		Rows:     [][]string{},
		Missing:  sel.Missing,
	}

	want := make([]string, len(sel.Indices))
	for j, i := range sel.Indices {
		want[j] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	for len(table.Rows) < SampleCap {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewMalformedArtifactError(fmt.Sprintf("failed to read data row %d", len(table.Rows)+table.SkippedHeaderRows+1), err)
		}

		rec, delim = recoverRecord(rec, delim, "data row", log)
		if repeatsHeader(rec, sel.Indices, want) {
			table.SkippedHeaderRows++
			continue
		}

		vals := make([]string, len(sel.Indices))
		for j, i := range sel.Indices {
			if i < len(rec) {
				vals[j] = rec[i]
			}
		}
		table.Rows = append(table.Rows, vals)
	}

	table.Delimiter = string(delim)
	log.Info("Captured %d sample rows from CSV (filtered columns).", len(table.Rows))
	if table.SkippedHeaderRows > 0 {
		log.Notice("Skipped %d repeated header rows.", table.SkippedHeaderRows)
	}
	return table, nil
}

func recoverRecord(rec []string, delim rune, what string, log *LogCollector) ([]string, rune) {
	out, used, changed := splitSingleField(rec, delim)
	if !changed {
		return rec, delim
	}
	if used != delim {
		log.Notice("Fallback-split %s using delimiter %q", what, used)
	}
	return out, used
}

// repeatsHeader compares rec with the header on the selected columns only
func repeatsHeader(rec []string, indices []int, want []string) bool {
	if len(indices) == 0 {
		return false
	}
	for j, i := range indices {
		got := ""
		if i < len(rec) {
			got = strings.ToLower(strings.TrimSpace(rec[i]))
		}
		if got != want[j] {
			return false
		}
	}
	return true
}
