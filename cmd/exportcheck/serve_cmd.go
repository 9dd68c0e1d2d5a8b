package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exportcheck/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and progress WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewApplication(app.Options{ConfigFile: opts.configFile, Server: true})
			if err != nil {
				return &exitError{code: exitErrored, err: err}
			}
			if cmd.Flags().Changed("port") {
				a.Config.Server.Port = port
				a.Server.Addr = fmt.Sprintf(":%d", port)
			}
			if err := a.Run(); err != nil {
				return &exitError{code: exitErrored, err: err}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port (overrides server.port)")
	return cmd
}
