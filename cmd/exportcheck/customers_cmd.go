package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exportcheck/internal/config"
	"exportcheck/internal/customers"
)

func newCustomersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List the customers of the configured customer list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.configFile)
			if err != nil {
				return err
			}
			paths, err := cfg.ResolvePaths()
			if err != nil {
				return err
			}
			list, err := customers.Load(cfg.CustomersPath(paths))
			if err != nil {
				return err
			}
			for _, name := range list.Sorted() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
