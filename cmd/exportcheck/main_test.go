package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/config"
	"exportcheck/internal/customers"
	"exportcheck/internal/exporter"
	"exportcheck/internal/operations"
	"exportcheck/internal/validation"
)

func runCLI(args ...string) (int, string, string) {
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := execute(cmd, args)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Version(t *testing.T) {
	code, out, _ := runCLI("version")
	assert.Equal(t, exitPassed, code)
	assert.Contains(t, out, config.AppName)
	assert.Contains(t, out, config.AppVersion)
}

func TestExecute_UsageErrors(t *testing.T) {
	code, _, errOut := runCLI("run")
	assert.Equal(t, exitErrored, code)
	assert.Contains(t, errOut, "customer")

	code, _, _ = runCLI("run", "--bogus")
	assert.Equal(t, exitErrored, code)

	code, _, _ = runCLI("nope")
	assert.Equal(t, exitErrored, code)
}

func TestBuildRunRequest(t *testing.T) {
	selector := validation.DefaultColumnSelector()
	list := customers.New("Acme Corp", "Globex")

	tests := []struct {
		name    string
		flags   runFlags
		list    *customers.List
		want    validation.RunRequest
		wantErr string
	}{
		{
			name:  "normalizes every field",
			flags: runFlags{customer: " acme corp ", kind: "Sticket Export", environment: "prod"},
			list:  list,
			want:  validation.RunRequest{Customer: "Acme Corp", ExportKind: validation.KindSticket, Environment: validation.EnvironmentProd},
		},
		{
			name:  "any customer without a list",
			flags: runFlags{customer: "Initech", kind: "contact", environment: "CERT"},
			want:  validation.RunRequest{Customer: "Initech", ExportKind: validation.KindContact, Environment: validation.EnvironmentCert},
		},
		{
			name:    "unknown customer",
			flags:   runFlags{customer: "Initech", kind: "contact", environment: "cert"},
			list:    list,
			wantErr: "not in the customer list",
		},
		{
			name:    "unknown kind",
			flags:   runFlags{customer: "Globex", kind: "invoice", environment: "cert"},
			wantErr: "--kind",
		},
		{
			name:    "unknown environment",
			flags:   runFlags{customer: "Globex", kind: "contact", environment: "staging"},
			wantErr: "--env",
		},
		{
			name:    "blank customer",
			flags:   runFlags{customer: "  ", kind: "contact", environment: "cert"},
			wantErr: "--customer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildRunRequest(&tt.flags, tt.list, selector)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func finishedRun(outcome validation.Outcome, runErr error) *operations.RunState {
	run := operations.NewRunState("run-1", validation.RunRequest{
		Customer:    "Acme",
		ExportKind:  validation.KindContact,
		Environment: validation.EnvironmentCert,
	})
	run.Start()
	report := &validation.ValidationReport{Outcome: outcome}
	run.Finish(report, &exporter.ReportFiles{HTML: "/tmp/report.html"}, runErr, false)
	return run
}

func TestOutcomeError(t *testing.T) {
	assert.NoError(t, outcomeError(finishedRun(validation.OutcomePassed, nil), nil))

	var exitErr *exitError
	err := outcomeError(finishedRun(validation.OutcomeFailed, nil), nil)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitFailed, exitErr.code)

	runErr := errors.New("poll timeout")
	err = outcomeError(finishedRun(validation.OutcomeError, runErr), runErr)
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitErrored, exitErr.code)
	assert.ErrorIs(t, err, runErr)
}

func TestPrintRun(t *testing.T) {
	run := finishedRun(validation.OutcomePassed, nil)

	var buf bytes.Buffer
	require.NoError(t, printRun(&buf, run, false))
	out := buf.String()
	assert.Contains(t, out, "Run:      run-1")
	assert.Contains(t, out, "Outcome:  passed")
	assert.Contains(t, out, "Report:   /tmp/report.html")

	buf.Reset()
	require.NoError(t, printRun(&buf, run, true))
	assert.Contains(t, buf.String(), `"report": {`)
	assert.Contains(t, buf.String(), `"status": "completed"`)
}
