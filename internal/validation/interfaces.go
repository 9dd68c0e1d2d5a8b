package validation

import (
	"context"
	"time"
)

// Navigator moves the session between pages
type Navigator interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Location(ctx context.Context) (string, error)
}

// ElementLocator finds and interacts with elements addressed by selector
type ElementLocator interface {
	// Visible reports whether the first match exists and is displayed
	Visible(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	// JSClick clicks through the page's script engine
	JSClick(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	SendText(ctx context.Context, selector, text string) error
	Attribute(ctx context.Context, selector, name string) (string, bool, error)
	// Tables returns every table on the page with header and body cell text
	Tables(ctx context.Context) ([]HTMLTable, error)
}

// Waiter blocks until an element condition holds or the timeout elapses
type Waiter interface {
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitGone(ctx context.Context, selector string, timeout time.Duration) error
}

// Session is the browser surface a run drives
type Session interface {
	Navigator
	ElementLocator
	Waiter
}

// HTMLTable is the text content of a rendered table
type HTMLTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// StatusSource is the job status surface observed by JobStatusPoller
type StatusSource interface {
	// ReadStatus returns the raw status text
	ReadStatus(ctx context.Context) (string, error)
	// Refresh reloads the observation surface
	Refresh(ctx context.Context) error
}

// ProgressReporter receives one update per meaningful state transition
type ProgressReporter interface {
	Update(description string)
	Complete()
}

// ArtifactStore yields the downloaded export file
type ArtifactStore interface {
	// WaitLatest blocks until the newest complete artifact is present
	WaitLatest(ctx context.Context) (string, error)
	Remove(path string) error
}

// ConfigProvider supplies URLs and selectors keyed by section and key
type ConfigProvider interface {
	Get(section, key string) (string, error)
	GetOr(section, key, fallback string) string
	Lookup(section, key string) (string, bool)
}

// Sleeper waits for a duration or until ctx is done
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// MetricsRecorder receives run instrumentation
type MetricsRecorder interface {
	RecordObservation(ctx context.Context, status string, wellformed bool)
	RecordCells(ctx context.Context, kind string, match, mismatch, notCompared int)
	RunStarted(ctx context.Context, kind string)
	RecordRun(ctx context.Context, kind, outcome string, duration time.Duration)
}

// NopProgress discards progress updates
type NopProgress struct{}

func (NopProgress) Update(string) {}
func (NopProgress) Complete()     {}

type nopMetrics struct{}

func (nopMetrics) RecordObservation(context.Context, string, bool)          {}
func (nopMetrics) RecordCells(context.Context, string, int, int, int)       {}
func (nopMetrics) RunStarted(context.Context, string)                       {}
func (nopMetrics) RecordRun(context.Context, string, string, time.Duration) {}
