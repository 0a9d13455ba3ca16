package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/clock/system"
	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/id/uuid"
	"github.com/newsroomlab/harvester/internal/metrics"
	"github.com/newsroomlab/harvester/internal/reconcile"
)

func newReconcileCmd(app *appState) *cobra.Command {
	var (
		sourceName  string
		date        string
		from        string
		to          string
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-check harvested partitions and repair defective records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			days, err := resolveDays(date, from, to)
			if err != nil {
				return err
			}
			deps, err := newBatchDeps(app, sourceName, concurrency)
			if err != nil {
				return err
			}

			metrics.Init()

			if dryRun {
				for _, day := range days {
					items, err := deps.discoverer.Reconcile(ctx, day)
					if err != nil {
						return err
					}
					app.logger.Info("dry run, not repairing",
						zap.String("source", sourceName),
						zap.String("date", day.String()),
						zap.Int("defects", len(items)),
					)
				}
				return nil
			}

			scanner, err := reconcile.New(reconcile.Config{
				Source:     sourceName,
				SummaryDir: filepath.Join(app.cfg.DataRoot, sourceName, "reconciliation"),
				Discoverer: deps.discoverer,
				Progress:   deps.progress,
				Run: func(ctx context.Context, day harvest.Day, state *harvest.ProgressState, items []harvest.WorkItem) (harvest.Summary, error) {
					return deps.runBatch(ctx, day, state, items)
				},
				IDs:    uuid.NewUUIDGenerator(),
				Clock:  system.New(),
				Logger: app.logger,
			})
			if err != nil {
				return err
			}

			summaries, err := scanner.ScanRange(ctx, days[0], days[len(days)-1])
			if err != nil {
				return err
			}

			failed := 0
			for _, s := range summaries {
				failed += s.Failed
			}
			if failed > 0 {
				return fmt.Errorf("reconciliation ended with %d unresolved failures", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "source to reconcile (required)")
	cmd.Flags().StringVar(&date, "date", "", "single day, YYYY-MM-DD (default today UTC)")
	cmd.Flags().StringVar(&from, "from", "", "range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "range end inclusive, YYYY-MM-DD")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "worker count override")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report defects without repairing")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}
