package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"exportcheck/internal/app"
	"exportcheck/internal/customers"
	"exportcheck/internal/operations"
	"exportcheck/internal/validation"
)

// Process exit codes of the run command
const (
	exitPassed  = 0
	exitFailed  = 1
	exitErrored = 2
)

type runFlags struct {
	customer    string
	kind        string
	environment string
	headless    bool
	jsonOutput  bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.customer, "customer", "", "customer whose export is validated (required)")
	fs.StringVarP(&f.kind, "kind", "k", string(validation.KindContact), "export kind: contact or sticket")
	fs.StringVarP(&f.environment, "env", "e", string(validation.EnvironmentCert), "environment: CERT or PROD")
	fs.BoolVar(&f.headless, "headless", true, "run the browser headless (overrides browser.headless)")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the run as JSON")
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one export validation and write the report",
		Long: "Logs into the selected environment, triggers the export, waits for the job, " +
			"downloads and reconciles the file and writes HTML, XLSX and CSV reports.\n\n" +
			"Exit codes: 0 passed, 1 mismatches found, 2 the run failed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewApplication(app.Options{ConfigFile: opts.configFile})
			if err != nil {
				return &exitError{code: exitErrored, err: err}
			}
			defer a.Close(context.Background())

			if cmd.Flags().Changed("headless") {
				a.Config.Browser.Headless = flags.headless
			}

			req, err := buildRunRequest(flags, a.Customers, a.Selector)
			if err != nil {
				return &exitError{code: exitErrored, err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, runErr := a.Runs.Run(ctx, req)
			if run == nil {
				return &exitError{code: exitErrored, err: runErr}
			}
			if err := printRun(cmd.OutOrStdout(), run, flags.jsonOutput); err != nil {
				return &exitError{code: exitErrored, err: err}
			}
			return outcomeError(run, runErr)
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

// buildRunRequest validates the flags against the known kinds,
// environments and, when a list is loaded, customers
func buildRunRequest(f *runFlags, list *customers.List, selector *validation.ColumnSelector) (validation.RunRequest, error) {
	env, err := validation.ParseEnvironment(f.environment)
	if err != nil {
		return validation.RunRequest{}, fmt.Errorf("invalid --env: %w", err)
	}

	kind := validation.ExportKind(strings.TrimSpace(f.kind))
	policy, ok := selector.Policy(kind)
	if !ok {
		return validation.RunRequest{}, fmt.Errorf("invalid --kind %q", f.kind)
	}

	customer := strings.TrimSpace(f.customer)
	if customer == "" {
		return validation.RunRequest{}, errors.New("--customer must not be empty")
	}
	if list != nil && list.Len() > 0 {
		listed, ok := list.Lookup(customer)
		if !ok {
			return validation.RunRequest{}, fmt.Errorf("customer %q is not in the customer list", customer)
		}
		customer = listed
	}

	return validation.RunRequest{
		Customer:    customer,
		ExportKind:  policy.Kind,
		Environment: env,
	}, nil
}

// outcomeError maps a finished run to the process exit code
func outcomeError(run *operations.RunState, runErr error) error {
	switch {
	case runErr != nil:
		return &exitError{code: exitErrored, err: runErr}
	case run.Outcome == validation.OutcomeFailed:
		return &exitError{code: exitFailed, err: errors.New("export validation found mismatches")}
	case run.Outcome == validation.OutcomeError:
		return &exitError{code: exitErrored, err: errors.New(run.Error)}
	}
	return nil
}

func printRun(w io.Writer, run *operations.RunState, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*operations.RunState
			Report *validation.ValidationReport `json:"report,omitempty"`
		}{run, run.Report})
	}

	fmt.Fprintf(w, "Run:      %s\n", run.ID)
	fmt.Fprintf(w, "Customer: %s\n", run.Request.Customer)
	fmt.Fprintf(w, "Export:   %s (%s)\n", run.Request.ExportKind, run.Request.Environment)
	fmt.Fprintf(w, "Status:   %s\n", run.Status)
	if run.Outcome != "" {
		fmt.Fprintf(w, "Outcome:  %s\n", run.Outcome)
	}
	fmt.Fprintf(w, "Duration: %s\n", run.Duration().Round(time.Second))

	if r := run.Report; r != nil {
		fmt.Fprintf(w, "Cells:    %d match, %d mismatch, %d not compared\n",
			r.Counts.Match, r.Counts.Mismatch, r.Counts.NotCompared)
		for _, fc := range r.FailedCases {
			fmt.Fprintf(w, "  FAILED  %s\n", fc.Entry.Message)
		}
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	if f := run.Files; f != nil {
		for _, p := range []string{f.HTML, f.XLSX, f.CSV} {
			if p != "" {
				fmt.Fprintf(w, "Report:   %s\n", p)
			}
		}
	}
	return nil
}
