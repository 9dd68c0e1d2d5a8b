package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type rootOptions struct {
	configFile string
}

// Execute runs the CLI and returns the process exit code
func Execute() int {
	return execute(newRootCmd(), os.Args[1:])
}

func execute(rootCmd *cobra.Command, args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.code > 1 {
				fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
			}
			return exitErr.code
		}
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return exitErrored
	}
	return exitPassed
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "exportcheck",
		Short:         "Validate data exports of the remote dashboard",
		Long:          "Triggers a data export in the remote dashboard, waits for the job, downloads the file and reconciles a sample against the dashboard tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: config.yaml or configs/config.yaml)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newCustomersCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
