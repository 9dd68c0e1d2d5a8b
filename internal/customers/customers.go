package customers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	apperrors "exportcheck/internal/errors"
)

// ColumnName is the header of the customer column
const ColumnName = "Customer Name"

// List is an ordered, de-duplicated set of customer names
type List struct {
	names []string
	index map[string]int
}

// Load reads a customer CSV from path
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open customer list", err).WithContext("path", path)
	}
	defer f.Close()

	l, err := Parse(f)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return nil, appErr.WithContext("path", path)
		}
		return nil, err
	}
	return l, nil
}

// Parse reads customer names from the Customer Name column of r. Blank
// names are skipped and repeated names are kept once.
func Parse(r io.Reader) (*List, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("customer list is empty; expected a '%s' column", ColumnName))
	}
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "failed to read customer list header", err)
	}

	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == ColumnName {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("customer list must have a '%s' column", ColumnName))
	}

	l := &List{index: map[string]int{}}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, fmt.Sprintf("failed to read customer list line %d", line), err)
		}
		if col >= len(rec) {
			continue
		}
		l.add(rec[col])
	}
	return l, nil
}

// New builds a list from names
func New(names ...string) *List {
	l := &List{index: map[string]int{}}
	for _, n := range names {
		l.add(n)
	}
	return l
}

func (l *List) add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	if _, dup := l.index[key]; dup {
		return
	}
	l.index[key] = len(l.names)
	l.names = append(l.names, name)
}

// Names returns the names in file order
func (l *List) Names() []string {
	return append([]string(nil), l.names...)
}

// Sorted returns the names in alphabetical order
func (l *List) Sorted() []string {
	out := l.Names()
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

// Len returns the number of names
func (l *List) Len() int {
	return len(l.names)
}

// Lookup returns the listed spelling of name, ignoring case and
// surrounding whitespace
func (l *List) Lookup(name string) (string, bool) {
	i, ok := l.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", false
	}
	return l.names[i], true
}
