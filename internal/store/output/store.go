// Package output implements the partitioned article record store.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// Config captures the parameters for the article store.
type Config struct {
	// BaseDir is the root directory of one source's article tree.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// Store writes one JSON file per article record under
// <base>/<year>/<month>/<day>/. Writes are temp-file + rename so a
// record is never observable half-written.
type Store struct {
	baseDir string
}

// New creates a store rooted at cfg.BaseDir, creating it if needed.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &Store{baseDir: cfg.BaseDir}, nil
}

// Path returns the record file path. It is a pure function of the
// partition day and key; repeated runs never produce duplicate files.
func (s *Store) Path(day harvest.Day, key string) string {
	name := fmt.Sprintf("%s_%s.json", day.String(), key)
	return filepath.Join(s.baseDir, filepath.FromSlash(day.Path()), name)
}

// Write replaces the record at (day, key) atomically.
func (s *Store) Write(day harvest.Day, key string, rec harvest.ArticleRecord) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	path := s.Path(day, key)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

// Exists reports whether a record file is present for (day, key).
func (s *Store) Exists(day harvest.Day, key string) bool {
	info, err := os.Stat(s.Path(day, key))
	return err == nil && !info.IsDir()
}

// Read loads the record at (day, key). Decode failures are surfaced as
// *harvest.CorruptRecordError so callers can distinguish unreadable
// records from missing ones.
func (s *Store) Read(day harvest.Day, key string) (harvest.ArticleRecord, error) {
	path := s.Path(day, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return harvest.ArticleRecord{}, fmt.Errorf("read record: %w", err)
	}
	var rec harvest.ArticleRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return harvest.ArticleRecord{}, &harvest.CorruptRecordError{Path: path, Err: err}
	}
	return rec, nil
}

// Delete removes the record file. A missing file is not an error.
func (s *Store) Delete(day harvest.Day, key string) error {
	err := os.Remove(s.Path(day, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Walk visits every record under the partition in directory order.
// Undecodable records are passed to fn with a non-nil decodeErr and a
// zero record. Iteration order is not stable across runs.
func (s *Store) Walk(day harvest.Day, fn func(key string, rec harvest.ArticleRecord, decodeErr error) error) error {
	dir := filepath.Join(s.baseDir, filepath.FromSlash(day.Path()))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read partition directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		key := keyFromName(entry.Name(), day)
		if key == "" {
			continue
		}
		rec, readErr := s.Read(day, key)
		var corrupt *harvest.CorruptRecordError
		switch {
		case readErr == nil:
			if err := fn(key, rec, nil); err != nil {
				return err
			}
		case errors.As(readErr, &corrupt):
			if err := fn(key, harvest.ArticleRecord{}, readErr); err != nil {
				return err
			}
		default:
			return readErr
		}
	}
	return nil
}

// keyFromName recovers the key from a "<date>_<key>.json" filename.
func keyFromName(name string, day harvest.Day) string {
	prefix := day.String() + "_"
	if !strings.HasPrefix(name, prefix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
}
