// Package reconcile re-checks already-harvested partitions against the
// authoritative list and repairs what it finds defective.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/discover"
	"github.com/newsroomlab/harvester/internal/harvest"
)

// Runner executes the repair batch for one partition. The worker pool
// satisfies this through a thin closure built by the command layer,
// which owns per-batch wiring (queue, flusher, fetch sessions).
type Runner func(ctx context.Context, day harvest.Day, state *harvest.ProgressState, items []harvest.WorkItem) (harvest.Summary, error)

// IDSource mints run identifiers.
type IDSource interface {
	NewID() (string, error)
}

// Summary is the per-partition reconciliation record, written next to
// the articles it covers.
type Summary struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Date      string    `json:"date"`
	Total     int       `json:"total"`
	Updated   int       `json:"updated"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Scanner walks one partition at a time through discovery, repair, and
// a flushed summary record.
type Scanner struct {
	source     string
	summaryDir string
	discoverer *discover.Discoverer
	progress   harvest.ProgressStore
	run        Runner
	ids        IDSource
	clock      harvest.Clock
	logger     *zap.Logger
}

// Config wires a Scanner.
type Config struct {
	Source string
	// SummaryDir is where per-day summary records land,
	// typically <root>/<source>/reconciliation.
	SummaryDir string
	Discoverer *discover.Discoverer
	Progress   harvest.ProgressStore
	Run        Runner
	IDs        IDSource
	Clock      harvest.Clock
	Logger     *zap.Logger
}

// New builds a Scanner.
func New(cfg Config) (*Scanner, error) {
	if cfg.SummaryDir == "" {
		return nil, fmt.Errorf("reconcile: summary dir required")
	}
	if err := os.MkdirAll(cfg.SummaryDir, 0o755); err != nil {
		return nil, fmt.Errorf("reconcile: create summary dir: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		source:     cfg.Source,
		summaryDir: cfg.SummaryDir,
		discoverer: cfg.Discoverer,
		progress:   cfg.Progress,
		run:        cfg.Run,
		ids:        cfg.IDs,
		clock:      cfg.Clock,
		logger:     logger,
	}, nil
}

// ScanDay reconciles one partition end to end and returns its summary.
// The summary record is written even when every item was healthy, so
// operators can tell "checked and clean" from "never checked".
func (s *Scanner) ScanDay(ctx context.Context, day harvest.Day) (Summary, error) {
	s.logger.Info("reconciliation discovering",
		zap.String("source", s.source),
		zap.String("date", day.String()),
	)

	items, err := s.discoverer.Reconcile(ctx, day)
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile %s %s: discover: %w", s.source, day, err)
	}

	state, err := s.progress.Load(day)
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile %s %s: load progress: %w", s.source, day, err)
	}

	var batch harvest.Summary
	if len(items) > 0 {
		s.logger.Info("reconciliation running",
			zap.String("source", s.source),
			zap.String("date", day.String()),
			zap.Int("defects", len(items)),
		)
		batch, err = s.run(ctx, day, state, items)
		if err != nil {
			return Summary{}, fmt.Errorf("reconcile %s %s: run: %w", s.source, day, err)
		}
	}

	runID, err := s.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("reconcile %s %s: run id: %w", s.source, day, err)
	}
	summary := Summary{
		RunID:     runID,
		Source:    s.source,
		Date:      day.String(),
		Total:     len(items),
		Updated:   batch.Succeeded,
		Skipped:   batch.Skipped,
		Failed:    batch.Failed,
		Timestamp: s.clock.Now(),
	}
	if err := s.writeSummary(day, summary); err != nil {
		return Summary{}, err
	}

	s.logger.Info("reconciliation flushed",
		zap.String("source", s.source),
		zap.String("date", day.String()),
		zap.String("run_id", summary.RunID),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// ScanRange reconciles each day in [from, to]. A failed day stops the
// range; completed days keep their summaries.
func (s *Scanner) ScanRange(ctx context.Context, from, to harvest.Day) ([]Summary, error) {
	var out []Summary
	for _, day := range harvest.DayRange(from, to) {
		summary, err := s.ScanDay(ctx, day)
		if err != nil {
			return out, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Scanner) writeSummary(day harvest.Day, summary Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("reconcile %s %s: encode summary: %w", s.source, day, err)
	}

	tmp, err := os.CreateTemp(s.summaryDir, ".summary-*.tmp")
	if err != nil {
		return fmt.Errorf("reconcile %s %s: temp summary: %w", s.source, day, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("reconcile %s %s: write summary: %w", s.source, day, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reconcile %s %s: close summary: %w", s.source, day, err)
	}

	final := filepath.Join(s.summaryDir, day.String()+".json")
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("reconcile %s %s: publish summary: %w", s.source, day, err)
	}
	return nil
}
