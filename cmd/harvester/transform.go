package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/clean"
)

func newTransformCmd(app *appState) *cobra.Command {
	var (
		sourceNames []string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Clean harvested articles into the transformed tree",
		RunE: func(*cobra.Command, []string) error {
			pass := clean.NewPass(app.cfg.DataRoot, app.logger)
			stats, err := pass.Run(sourceNames, force)
			if err != nil {
				return err
			}
			app.logger.Info("transform finished",
				zap.Int("transformed", stats.Transformed),
				zap.Int("skipped", stats.Skipped),
				zap.Int("failed", stats.Failed),
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sourceNames, "source", nil, "sources to transform (default all)")
	cmd.Flags().BoolVar(&force, "force", false, "wipe targeted transformed trees and redo everything")
	return cmd
}
