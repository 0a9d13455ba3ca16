// Package progress persists per-partition batch progress.
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// Config captures the parameters for the progress store.
type Config struct {
	// BaseDir is the progress directory for one source.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store keeps one JSON file per partition day. The design assumes a
// single writer per partition per run; concurrent same-partition runs
// are out of contract and may corrupt progress.
type Store struct {
	baseDir string
}

// fileState is the on-disk shape. Slices are sorted so repeated saves
// of the same state are byte-identical.
type fileState struct {
	Scraped     []string       `json:"scraped"`
	Failed      []string       `json:"failed"`
	RetryCounts map[string]int `json:"retry_counts"`
}

// New creates a progress store rooted at cfg.BaseDir.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create progress directory: %w", err)
	}
	return &Store{baseDir: cfg.BaseDir}, nil
}

func (s *Store) path(day harvest.Day) string {
	return filepath.Join(s.baseDir, day.String()+".json")
}

// Load returns the persisted state for the day, or an empty state when
// none has been written yet.
func (s *Store) Load(day harvest.Day) (*harvest.ProgressState, error) {
	data, err := os.ReadFile(s.path(day))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return harvest.NewProgressState(), nil
		}
		return nil, fmt.Errorf("read progress: %w", err)
	}
	var f fileState
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", s.path(day), err)
	}
	return harvest.RestoreProgressState(f.Scraped, f.Failed, f.RetryCounts), nil
}

// Save persists the state crash-consistently: the new content lands in
// a temp file which is renamed over the old one, so a partial write
// never masks previously good state.
func (s *Store) Save(day harvest.Day, state *harvest.ProgressState) error {
	scraped, failed, retryCounts := state.Snapshot()
	sort.Strings(scraped)
	sort.Strings(failed)
	f := fileState{Scraped: scraped, Failed: failed, RetryCounts: retryCounts}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp progress: %w", err)
	}
	if err := os.Rename(tmpName, s.path(day)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}
