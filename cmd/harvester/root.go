package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/config"
	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/logging"
	"github.com/newsroomlab/harvester/internal/sources"
	progressstore "github.com/newsroomlab/harvester/internal/store/progress"
)

// appState carries what every subcommand needs after root setup.
type appState struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	app := &appState{}

	root := &cobra.Command{
		Use:           "harvester",
		Short:         "Harvest, repair, and enrich news article archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			app.cfg = cfg
			app.logger = logger
			cmd.SilenceUsage = true
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if app.logger != nil {
				_ = app.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	root.AddCommand(
		newScrapeCmd(app),
		newReconcileCmd(app),
		newTransformCmd(app),
		newEnrichCmd(app),
		newServeCmd(app),
	)
	return root
}

// progressOpener returns the per-source progress store factory used by
// both the batch commands and the ops listener.
func (a *appState) progressOpener() func(source string) (*progressstore.Store, error) {
	return func(source string) (*progressstore.Store, error) {
		if _, err := sources.Get(source); err != nil {
			return nil, err
		}
		return progressstore.New(progressstore.Config{
			BaseDir: filepath.Join(a.cfg.DataRoot, "progress", source),
		})
	}
}

// resolveDays turns the --date / --from / --to flags into a day range.
// With no flags it defaults to today (UTC).
func resolveDays(date, from, to string) ([]harvest.Day, error) {
	switch {
	case date != "" && (from != "" || to != ""):
		return nil, fmt.Errorf("--date cannot be combined with --from/--to")
	case date != "":
		day, err := harvest.ParseDay(date)
		if err != nil {
			return nil, err
		}
		return []harvest.Day{day}, nil
	case from != "" || to != "":
		if from == "" || to == "" {
			return nil, fmt.Errorf("--from and --to must be given together")
		}
		first, err := harvest.ParseDay(from)
		if err != nil {
			return nil, err
		}
		last, err := harvest.ParseDay(to)
		if err != nil {
			return nil, err
		}
		if last.Before(first) {
			return nil, fmt.Errorf("--to %s is before --from %s", to, from)
		}
		return harvest.DayRange(first, last), nil
	default:
		now := time.Now().UTC()
		day, err := harvest.ParseDay(now.Format("2006-01-02"))
		if err != nil {
			return nil, err
		}
		return []harvest.Day{day}, nil
	}
}
