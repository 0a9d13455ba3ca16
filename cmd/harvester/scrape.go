package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/api"
	"github.com/newsroomlab/harvester/internal/clock/system"
	"github.com/newsroomlab/harvester/internal/discover"
	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/metrics"
	memqueue "github.com/newsroomlab/harvester/internal/queue/memory"
	"github.com/newsroomlab/harvester/internal/sources"
	outputstore "github.com/newsroomlab/harvester/internal/store/output"
	progressstore "github.com/newsroomlab/harvester/internal/store/progress"
	"github.com/newsroomlab/harvester/internal/worker"
)

func newScrapeCmd(app *appState) *cobra.Command {
	var (
		sourceName  string
		date        string
		from        string
		to          string
		concurrency int
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Harvest articles for one source over a date range",
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
			if app.cfg.Ops.Enabled {
				go serveOps(ctx, app)
			}

			var total harvest.Summary
			for _, day := range days {
				if ctx.Err() != nil {
					app.logger.Warn("batch interrupted, stopping before next day",
						zap.String("date", day.String()))
					break
				}

				state, err := deps.progress.Load(day)
				if err != nil {
					return err
				}
				items, err := deps.discoverer.Fresh(ctx, day, state)
				if err != nil {
					return err
				}

				if dryRun {
					app.logger.Info("dry run, not fetching",
						zap.String("source", sourceName),
						zap.String("date", day.String()),
						zap.Int("pending", len(items)),
					)
					continue
				}

				summary, err := deps.runBatch(ctx, day, state, items)
				if err != nil {
					return err
				}
				total.Add(summary)
			}

			app.logger.Info("scrape finished",
				zap.String("source", sourceName),
				zap.Int("succeeded", total.Succeeded),
				zap.Int("failed", total.Failed),
				zap.Int("skipped", total.Skipped),
			)
			if total.Failed > 0 {
				return fmt.Errorf("scrape ended with %d unresolved failures", total.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "source to harvest (required)")
	cmd.Flags().StringVar(&date, "date", "", "single day, YYYY-MM-DD (default today UTC)")
	cmd.Flags().StringVar(&from, "from", "", "range start, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "range end inclusive, YYYY-MM-DD")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "worker count override")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "discover work but fetch nothing")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// batchDeps bundles everything one source's batches share across days.
type batchDeps struct {
	app         *appState
	src         *sources.Source
	out         *outputstore.Store
	progress    *progressstore.Store
	discoverer  *discover.Discoverer
	concurrency int
}

func newBatchDeps(app *appState, sourceName string, concurrency int) (*batchDeps, error) {
	src, err := sources.Get(sourceName)
	if err != nil {
		return nil, err
	}

	out, err := outputstore.New(outputstore.Config{
		BaseDir: filepath.Join(app.cfg.DataRoot, sourceName, "articles"),
	})
	if err != nil {
		return nil, err
	}
	progress, err := app.progressOpener()(sourceName)
	if err != nil {
		return nil, err
	}

	list := src.NewListProvider(sources.ListProviderConfig{
		UserAgent: app.cfg.Harvest.UserAgent,
		Timeout:   app.cfg.FetchTimeout(),
		Delay:     time.Duration(app.cfg.Harvest.ListDelaySeconds) * time.Second,
		Logger:    app.logger,
	})

	if concurrency <= 0 {
		concurrency = app.cfg.Harvest.Concurrency
	}

	return &batchDeps{
		app:         app,
		src:         src,
		out:         out,
		progress:    progress,
		discoverer:  discover.New(list, out, app.cfg.Harvest.MinContentLength, app.logger),
		concurrency: concurrency,
	}, nil
}

// runBatch wires and drains one day's worker pool.
func (d *batchDeps) runBatch(ctx context.Context, day harvest.Day, state *harvest.ProgressState, items []harvest.WorkItem) (harvest.Summary, error) {
	if len(items) == 0 {
		d.app.logger.Info("nothing to fetch",
			zap.String("source", d.src.Name),
			zap.String("date", day.String()),
		)
		return harvest.Summary{}, nil
	}

	fetcher, cleanup, err := d.src.NewFetcher(sources.FetcherConfig{
		UserAgent:    d.app.cfg.Harvest.UserAgent,
		FetchTimeout: d.app.cfg.FetchTimeout(),
		NavTimeout:   time.Duration(d.app.cfg.Headless.NavTimeoutSec) * time.Second,
	})
	if err != nil {
		return harvest.Summary{}, err
	}
	defer cleanup()

	queue := memqueue.NewQueue(d.app.cfg.Harvest.QueueDepth)
	flusher := worker.NewFlusher(d.progress, day, state, d.app.cfg.Harvest.CheckpointEvery, d.app.logger)
	policy := worker.NewRetryPolicy(d.app.cfg.Harvest.MaxRetries, d.app.cfg.BackoffBase(), d.app.cfg.BackoffMax())

	pool := worker.New(queue, fetcher, d.out, state, flusher, policy, system.New(), worker.Config{
		Source:           d.src.Name,
		Concurrency:      d.concurrency,
		MinContentLength: d.app.cfg.Harvest.MinContentLength,
		FetchTimeout:     d.app.cfg.FetchTimeout(),
	}, d.app.logger)

	summary, err := pool.Run(ctx, items)
	if err != nil {
		return summary, fmt.Errorf("batch %s %s: %w", d.src.Name, day, err)
	}
	return summary, nil
}

// serveOps runs the ops listener until ctx is canceled. Failures are
// logged, never fatal to the batch.
func serveOps(ctx context.Context, app *appState) {
	srv := api.NewServer(app.progressOpener(), app.logger)
	addr := fmt.Sprintf(":%d", app.cfg.Ops.Port)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		app.logger.Error("ops listener failed", zap.Error(err))
	}
}
