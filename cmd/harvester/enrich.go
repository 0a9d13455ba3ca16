package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/enrich"
	"github.com/newsroomlab/harvester/internal/sources"
)

func newEnrichCmd(app *appState) *cobra.Command {
	var sourceNames []string

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Annotate transformed articles with summaries, keywords, and entities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if len(sourceNames) == 0 {
				sourceNames = sources.Names()
			}

			model, err := enrich.NewGemini(ctx, app.cfg.Enrich.APIKey, app.cfg.Enrich.Model)
			if err != nil {
				return err
			}
			defer model.Close()

			pass := enrich.NewPass(enrich.Config{
				Root:   app.cfg.DataRoot,
				Model:  model,
				Delay:  time.Duration(app.cfg.Enrich.DelaySeconds) * time.Second,
				Logger: app.logger,
			})
			stats, err := pass.Run(ctx, sourceNames)
			if err != nil {
				return err
			}
			app.logger.Info("enrichment finished",
				zap.Int("enriched", stats.Enriched),
				zap.Int("skipped", stats.Skipped),
				zap.Int("failed", stats.Failed),
			)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sourceNames, "source", nil, "sources to enrich (default all)")
	return cmd
}
