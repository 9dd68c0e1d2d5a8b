package validation

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/config"
	apperrors "exportcheck/internal/errors"
	"exportcheck/internal/shared/testutil"
)

const sticketCSV = "Patient,DOB,Created,PCP,Health Plan\n" +
	"John Smith,1990-01-01,2024-01-01,Dr A,Acme\n" +
	"Jane Doe,1991-02-02,2024-01-02,Dr B,Beta\n"

type runnerFixture struct {
	session  *fakeSession
	store    *fakeStore
	metrics  *recordingMetrics
	progress *recordingProgress
	runner   *Runner
}

func newRunnerFixture(t *testing.T, csv string, status ...string) *runnerFixture {
	t.Helper()
	l := testLocators()

	s := newFakeSession()
	s.texts[loc(l, KeyDashboardCell)] = []string{"Acme Health"}
	s.texts[loc(l, KeyDashboardExport)] = []string{"Sticket Export"}
	if len(status) == 0 {
		status = []string{"Status\nSuccess\n100%"}
	}
	s.texts[loc(l, KeyStatusInfo)] = status
	s.tables = []HTMLTable{{
		Headers: []string{"Created", "PCP", "Health Plan"},
		Rows: [][]string{
			{"2024-01-01", "Dr A", "Acme"},
			{"2024-01-02", "Dr B", "Beta"},
		},
	}}

	store := &fakeStore{path: testutil.WriteFile(t, t.TempDir(), "export.csv", csv, time.Time{})}
	metrics := &recordingMetrics{}
	clock := testutil.FixedClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), time.Second)

	r := NewRunner(s, l, store, config.Credentials{User: "qa-user", Password: "secret"}, DefaultRunnerConfig(), nil).
		WithSleeper(&testutil.FakeSleeper{}).
		WithMetrics(metrics).
		WithClock(clock)

	return &runnerFixture{session: s, store: store, metrics: metrics, progress: &recordingProgress{}, runner: r}
}

func (f *runnerFixture) run(kind ExportKind) (*ValidationReport, error) {
	req := RunRequest{RunID: "run-1", Customer: "Acme Health", ExportKind: kind, Environment: EnvironmentCert}
	return f.runner.Run(context.Background(), req, f.progress)
}

func (f *runnerFixture) loggedOut(t *testing.T) {
	t.Helper()
	calls := f.session.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "navigate:https://cert.example.com/user/logout", calls[len(calls)-1])
}

func TestRunner_SticketExportPasses(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV, "Status\nInProgress\n40%", "Status\nSuccess\n100%")

	report, err := f.run("Sticket Export")
	require.NoError(t, err)

	assert.Equal(t, OutcomePassed, report.Outcome)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, KindSticket, report.ExportKind)
	assert.Equal(t, []string{"Created", "PCP", "Health Plan"}, report.Columns)
	assert.Equal(t, [][]string{{"2024-01-01", "Dr A", "Acme"}, {"2024-01-02", "Dr B", "Beta"}}, report.SampleRows)
	assert.Equal(t, MatchCounts{Match: 6}, report.Counts)
	assert.Equal(t, []string{"Last Updated", "Last Updated by", "Latest Note"}, report.Missing)
	assert.Empty(t, report.FailedCases)
	assert.True(t, report.FinishedAt.After(report.StartedAt))

	f.loggedOut(t)
	assert.Equal(t, 1, f.session.called("reload"))
	assert.Equal(t, 1, f.session.called("tables"))
	_, statErr := os.Stat(f.store.path)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []string{f.store.path}, f.store.removed)
	assert.Equal(t, 1, entriesContainingReport(report, LevelInfo, "Deleted processed file: export.csv"))

	assert.Equal(t, 1, f.metrics.started)
	assert.Equal(t, []string{"passed"}, f.metrics.outcomes)
	assert.Equal(t, [3]int{6, 0, 0}, f.metrics.cells)
	assert.Equal(t, 2, f.metrics.observations)
	assert.Equal(t, 1, f.progress.completed)
	assert.NotEmpty(t, f.progress.updates)
}

func TestRunner_PositionalComparison(t *testing.T) {
	f := newRunnerFixture(t, "Health Plan,PCP\nAcme,Dr A\nBeta,Dr B\n")
	f.session.tables = []HTMLTable{{
		Headers: []string{"Health Plan", "PCP"},
		Rows:    [][]string{{"acme", "dr a"}},
	}}

	report, err := f.run(KindSticket)
	require.NoError(t, err)

	assert.Equal(t, []string{"PCP", "Health Plan"}, report.Columns)
	assert.Equal(t, Match, report.Cell(0, 0))
	assert.Equal(t, Match, report.Cell(0, 1))
	assert.Equal(t, NotCompared, report.Cell(1, 0))
	assert.Equal(t, NotCompared, report.Cell(1, 1))
	assert.Equal(t, OutcomePassed, report.Outcome)
}

func TestRunner_MismatchFailsRun(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV)
	f.session.tables[0].Rows[1][2] = "Gamma"

	report, err := f.run(KindSticket)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, Mismatch, report.Cell(1, 2))
	assert.Equal(t, 1, report.Counts.Mismatch)
	require.Len(t, report.FailedCases, 1)
	assert.Contains(t, report.FailedCases[0].Entry.Message, "Row 2, column 'Health Plan' mismatch")
	assert.Equal(t, []string{"failed"}, f.metrics.outcomes)
}

func TestRunner_JobFailed(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV, "Status\nDeleted\n100%")

	report, err := f.run(KindSticket)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeJobFailed))
	assert.Equal(t, OutcomeError, report.Outcome)
	assert.Equal(t, apperrors.ErrTypeJobFailed, report.ErrorType)
	assert.Nil(t, report.Matrix)
	assert.Zero(t, f.store.waits)
	assert.Equal(t, 1, entriesContainingReport(report, LevelFailure, "Validation run failed"))
	f.loggedOut(t)
	assert.Equal(t, []string{"error"}, f.metrics.outcomes)
}

func TestRunner_KindWithoutSecondSource(t *testing.T) {
	f := newRunnerFixture(t, "Patient,Route,PCP\nJohn,Home,Dr A\n")

	report, err := f.run(KindContact)
	require.NoError(t, err)

	assert.Equal(t, OutcomePassed, report.Outcome)
	assert.Equal(t, []string{"Route", "PCP"}, report.Columns)
	assert.Equal(t, MatchCounts{NotCompared: 2}, report.Counts)
	assert.Zero(t, f.session.called("tables"))
}

func TestRunner_SecondSourceUnavailable(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV)
	f.session.tables = []HTMLTable{{Headers: []string{"Filter"}}}

	report, err := f.run(KindSticket)
	require.NoError(t, err)

	assert.Equal(t, MatchCounts{NotCompared: 6}, report.Counts)
	assert.Equal(t, 1, entriesContainingReport(report, LevelNotice, "UI comparison for sticket export failed"))
}

func TestRunner_DownloadMissing(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV)
	f.store.err = context.DeadlineExceeded

	report, err := f.run(KindSticket)

	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAutomation))
	assert.Equal(t, 1, entriesContainingReport(report, LevelFailure, "CSV file not found or download incomplete."))
	f.loggedOut(t)
}

func TestRunner_EmptyArtifactIsRemoved(t *testing.T) {
	f := newRunnerFixture(t, "")

	report, err := f.run(KindSticket)

	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeEmptyArtifact))
	assert.Equal(t, OutcomeError, report.Outcome)
	assert.Equal(t, []string{f.store.path}, f.store.removed)
}

func TestRunner_LoginFailure(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV)
	f.session.navigateErr = errors.New("net::ERR_CONNECTION_REFUSED")

	report, err := f.run(KindSticket)

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeAutomation, appErr.Type)
	assert.Equal(t, 1, entriesContainingReport(report, LevelFailure, "Login error (CERT)"))
	assert.Equal(t, 1, entriesContainingReport(report, LevelNotice, "Logout failed"))
}

func TestRunner_GeneratesRunID(t *testing.T) {
	f := newRunnerFixture(t, sticketCSV)

	report, err := f.runner.Run(context.Background(), RunRequest{
		Customer:    "Acme Health",
		ExportKind:  KindSticket,
		Environment: EnvironmentCert,
	}, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
}

func entriesContainingReport(r *ValidationReport, level Level, substr string) int {
	return countEntries(r.Entries, level, substr)
}

func TestRunnerConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Poller.MaxAttempts = 7
	cfg.Poller.RetryInterval = time.Second
	cfg.Browser.LoginTimeout = 5 * time.Second
	cfg.Artifact.SniffBytes = 2048

	rc := RunnerConfigFrom(cfg)
	assert.Equal(t, 7, rc.Policy.MaxAttempts)
	assert.Equal(t, time.Second, rc.Policy.RetryInterval)
	assert.Equal(t, 5*time.Second, rc.Timeouts.Login)
	assert.Equal(t, cfg.Poller.StatusTimeout, rc.Timeouts.Status)
	assert.Equal(t, 2048, rc.SniffBytes)

	assert.Equal(t, DefaultRunnerConfig(), RunnerConfigFrom(nil))
}
