package validation

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"exportcheck/internal/config"
)

// fakeSession scripts the browser surface and records every call
type fakeSession struct {
	mu sync.Mutex

	calls    []string
	visible  map[string]bool
	texts    map[string][]string
	attrs    map[string]string
	tables   []HTMLTable
	location string

	navigateErr error
	clickErr    map[string]error
	jsClickErr  map[string]error
	waitErr     map[string]error
	tablesErr   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		visible:    map[string]bool{},
		texts:      map[string][]string{},
		attrs:      map[string]string{},
		clickErr:   map[string]error{},
		jsClickErr: map[string]error{},
		waitErr:    map[string]error{},
		location:   "https://app.example.com/sticket_log",
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) called(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.record("navigate:" + url)
	return f.navigateErr
}

func (f *fakeSession) Reload(context.Context) error {
	f.record("reload")
	return nil
}

func (f *fakeSession) Location(context.Context) (string, error) {
	return f.location, nil
}

func (f *fakeSession) Visible(_ context.Context, sel string) (bool, error) {
	f.record("visible:" + sel)
	return f.visible[sel], nil
}

func (f *fakeSession) Click(_ context.Context, sel string) error {
	f.record("click:" + sel)
	return f.clickErr[sel]
}

func (f *fakeSession) JSClick(_ context.Context, sel string) error {
	f.record("jsclick:" + sel)
	return f.jsClickErr[sel]
}

func (f *fakeSession) Text(_ context.Context, sel string) (string, error) {
	f.record("text:" + sel)
	f.mu.Lock()
	defer f.mu.Unlock()
	seq, ok := f.texts[sel]
	if !ok || len(seq) == 0 {
		return "", errors.New("no such element: " + sel)
	}
	text := seq[0]
	if len(seq) > 1 {
		f.texts[sel] = seq[1:]
	}
	return text, nil
}

func (f *fakeSession) SendText(_ context.Context, sel, text string) error {
	f.record("send:" + sel + "=" + text)
	return nil
}

func (f *fakeSession) Attribute(_ context.Context, sel, name string) (string, bool, error) {
	f.record("attr:" + sel)
	v, ok := f.attrs[sel+"@"+name]
	return v, ok, nil
}

func (f *fakeSession) Tables(context.Context) ([]HTMLTable, error) {
	f.record("tables")
	return f.tables, f.tablesErr
}

func (f *fakeSession) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	f.record("wait:" + sel)
	return f.waitErr[sel]
}

func (f *fakeSession) WaitGone(_ context.Context, sel string, _ time.Duration) error {
	return nil
}

// testLocators returns the built-in selectors plus CERT and PROD URLs
func testLocators() *config.Locators {
	l := config.DefaultLocators()
	l.Set("cert", KeyLoginURL, "https://cert.example.com/user/login")
	l.Set("cert", KeyLogoutURL, "https://cert.example.com/user/logout")
	l.Set("prod", KeyLoginURL, "https://app.example.com/user/login")
	l.Set(SectionCredentials, KeyExportReason, "Export validation")
	return l
}

func loc(l *config.Locators, key string) string {
	v, _ := l.Lookup(SectionLocators, key)
	return v
}

// fakeStore hands out a prepared artifact
type fakeStore struct {
	mu      sync.Mutex
	path    string
	err     error
	waits   int
	removed []string
}

func (s *fakeStore) WaitLatest(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits++
	return s.path, s.err
}

func (s *fakeStore) Remove(path string) error {
	s.mu.Lock()
	s.removed = append(s.removed, path)
	s.mu.Unlock()
	return os.Remove(path)
}

// recordingProgress records updates
type recordingProgress struct {
	mu        sync.Mutex
	updates   []string
	completed int
}

func (p *recordingProgress) Update(d string) {
	p.mu.Lock()
	p.updates = append(p.updates, d)
	p.mu.Unlock()
}

func (p *recordingProgress) Complete() {
	p.mu.Lock()
	p.completed++
	p.mu.Unlock()
}

// recordingMetrics counts instrumentation calls
type recordingMetrics struct {
	mu           sync.Mutex
	observations int
	malformed    int
	started      int
	outcomes     []string
	cells        [3]int
}

func (m *recordingMetrics) RecordObservation(_ context.Context, _ string, wellformed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations++
	if !wellformed {
		m.malformed++
	}
}

func (m *recordingMetrics) RecordCells(_ context.Context, _ string, match, mismatch, notCompared int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[0] += match
	m.cells[1] += mismatch
	m.cells[2] += notCompared
}

func (m *recordingMetrics) RunStarted(context.Context, string) {
	m.mu.Lock()
	m.started++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordRun(_ context.Context, _ string, outcome string, _ time.Duration) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, outcome)
	m.mu.Unlock()
}

func entriesContaining(log *LogCollector, level Level, substr string) int {
	return countEntries(log.Entries(), level, substr)
}

func countEntries(entries []LogEntry, level Level, substr string) int {
	n := 0
	for _, e := range entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}
