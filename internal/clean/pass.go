package clean

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	articlesDir    = "articles"
	transformedDir = "transformed_articles"
)

// Pass runs the transformation over a data root. It is a delta walk:
// only articles missing from the destination tree are processed, so
// repeated runs are cheap and idempotent.
type Pass struct {
	root   string
	logger *zap.Logger
}

// NewPass builds a Pass over the given data root.
func NewPass(root string, logger *zap.Logger) *Pass {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{root: root, logger: logger}
}

// Stats counts one run's work.
type Stats struct {
	Transformed int
	Skipped     int
	Failed      int
}

// Sources lists the source directories under the root. The progress
// directory is bookkeeping, not a source.
func (p *Pass) Sources() ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("read data root %s: %w", p.root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "progress" {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Run transforms every pending article for the named sources. An empty
// sources slice means all discovered sources. force wipes each named
// source's transformed tree first, so everything is redone.
func (p *Pass) Run(sources []string, force bool) (Stats, error) {
	if len(sources) == 0 {
		var err error
		sources, err = p.Sources()
		if err != nil {
			return Stats{}, err
		}
	}

	var total Stats
	for _, source := range sources {
		stats, err := p.runSource(source, force)
		if err != nil {
			return total, err
		}
		total.Transformed += stats.Transformed
		total.Skipped += stats.Skipped
		total.Failed += stats.Failed
	}
	return total, nil
}

func (p *Pass) runSource(source string, force bool) (Stats, error) {
	srcDir := filepath.Join(p.root, source, articlesDir)
	dstDir := filepath.Join(p.root, source, transformedDir)

	if _, err := os.Stat(srcDir); err != nil {
		p.logger.Warn("source has no articles directory, skipping",
			zap.String("source", source),
			zap.String("dir", srcDir),
		)
		return Stats{}, nil
	}

	if force {
		if err := os.RemoveAll(dstDir); err != nil {
			return Stats{}, fmt.Errorf("wipe transformed tree for %s: %w", source, err)
		}
		p.logger.Info("wiped transformed tree", zap.String("source", source))
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create transformed tree for %s: %w", source, err)
	}

	pending, err := pendingFiles(srcDir, dstDir)
	if err != nil {
		return Stats{}, fmt.Errorf("diff article trees for %s: %w", source, err)
	}
	if len(pending) == 0 {
		p.logger.Info("transformed tree up to date", zap.String("source", source))
		return Stats{}, nil
	}
	p.logger.Info("transforming articles",
		zap.String("source", source),
		zap.Int("pending", len(pending)),
	)

	var stats Stats
	for _, rel := range pending {
		switch err := p.transformFile(srcDir, dstDir, rel); {
		case err == nil:
			stats.Transformed++
		case err == errEmptyFile:
			stats.Skipped++
		default:
			// One broken file never stops the pass.
			stats.Failed++
			p.logger.Error("transform failed",
				zap.String("source", source),
				zap.String("file", rel),
				zap.Error(err),
			)
		}
	}
	return stats, nil
}

var errEmptyFile = fmt.Errorf("empty article file")

func (p *Pass) transformFile(srcDir, dstDir, rel string) error {
	srcPath := filepath.Join(srcDir, rel)
	info, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errEmptyFile
	}

	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	transformed, err := Transform(stem, raw)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(transformed, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transformed article: %w", err)
	}

	dstPath := filepath.Join(dstDir, rel)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, data, 0o644)
}

// pendingFiles returns, relative to srcDir, every .json file present in
// the source tree but absent from the destination tree.
func pendingFiles(srcDir, dstDir string) ([]string, error) {
	srcFiles, err := jsonFiles(srcDir)
	if err != nil {
		return nil, err
	}
	dstFiles, err := jsonFiles(dstDir)
	if err != nil {
		return nil, err
	}

	done := make(map[string]struct{}, len(dstFiles))
	for _, rel := range dstFiles {
		done[rel] = struct{}{}
	}

	var pending []string
	for _, rel := range srcFiles {
		if _, ok := done[rel]; !ok {
			pending = append(pending, rel)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

func jsonFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
