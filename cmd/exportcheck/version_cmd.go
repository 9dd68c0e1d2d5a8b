package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exportcheck/internal/app"
	"exportcheck/internal/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", config.AppName, config.AppVersion)
			if app.BuildTime != "" {
				fmt.Fprintf(out, "built %s\n", app.BuildTime)
			}
			return nil
		},
	}
}
