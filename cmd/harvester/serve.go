package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newsroomlab/harvester/internal/api"
	"github.com/newsroomlab/harvester/internal/metrics"
)

func newServeCmd(app *appState) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops listener (health, metrics, progress lookups)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics.Init()

			if port <= 0 {
				port = app.cfg.Ops.Port
			}
			srv := api.NewServer(app.progressOpener(), app.logger)
			return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port override")
	return cmd
}
