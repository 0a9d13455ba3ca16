package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newsroomlab/harvester/internal/clean"
)

const (
	inputSubdir  = "transformed_articles"
	outputSubdir = "transformed_articles_ner"

	// MinBodyLength gates enrichment: shorter bodies carry too little
	// signal to be worth an API call.
	MinBodyLength = 50
)

// document is a transformed article with the entities field kept
// opaque, so the pass can replace the placeholder shape with the
// model's entity list.
type document struct {
	ArticleID  string           `json:"article_id"`
	SourceInfo clean.SourceInfo `json:"source_info"`
	Metadata   clean.Metadata   `json:"metadata"`
	Content    clean.Content    `json:"content"`
	Entities   json.RawMessage  `json:"entities"`
}

// Pass walks transformed articles and writes enriched copies. Like the
// transformation pass it is a delta walk keyed on destination absence.
type Pass struct {
	root    string
	model   Model
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Config wires an enrichment Pass.
type Config struct {
	// Root is the data root holding per-source trees.
	Root  string
	Model Model
	// Delay spaces model calls. Defaults to one second.
	Delay  time.Duration
	Logger *zap.Logger
}

// NewPass builds a Pass.
func NewPass(cfg Config) *Pass {
	delay := cfg.Delay
	if delay <= 0 {
		delay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pass{
		root:    cfg.Root,
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Every(delay), 1),
		logger:  logger,
	}
}

// Stats counts one run's work.
type Stats struct {
	Enriched int
	Skipped  int
	Failed   int
}

// Run enriches every pending article for the named sources, oldest
// path first for deterministic order.
func (p *Pass) Run(ctx context.Context, sources []string) (Stats, error) {
	var total Stats
	for _, source := range sources {
		stats, err := p.runSource(ctx, source)
		if err != nil {
			return total, err
		}
		total.Enriched += stats.Enriched
		total.Skipped += stats.Skipped
		total.Failed += stats.Failed
	}
	return total, nil
}

func (p *Pass) runSource(ctx context.Context, source string) (Stats, error) {
	inDir := filepath.Join(p.root, source, inputSubdir)
	outDir := filepath.Join(p.root, source, outputSubdir)

	if _, err := os.Stat(inDir); err != nil {
		p.logger.Warn("source has no transformed articles, skipping",
			zap.String("source", source),
			zap.String("dir", inDir),
		)
		return Stats{}, nil
	}

	pending, err := pendingFiles(inDir, outDir)
	if err != nil {
		return Stats{}, fmt.Errorf("diff transformed trees for %s: %w", source, err)
	}
	if len(pending) == 0 {
		p.logger.Info("enriched tree up to date", zap.String("source", source))
		return Stats{}, nil
	}
	p.logger.Info("enriching articles",
		zap.String("source", source),
		zap.Int("pending", len(pending)),
	)

	var stats Stats
	for _, rel := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		switch err := p.enrichFile(ctx, inDir, outDir, rel); {
		case err == nil:
			stats.Enriched++
		case err == errShortBody:
			stats.Skipped++
			p.logger.Warn("skipping short article body",
				zap.String("source", source),
				zap.String("file", rel),
			)
		case ctx.Err() != nil:
			return stats, ctx.Err()
		default:
			stats.Failed++
			p.logger.Error("enrichment failed",
				zap.String("source", source),
				zap.String("file", rel),
				zap.Error(err),
			)
		}
	}
	return stats, nil
}

var errShortBody = fmt.Errorf("article body too short")

func (p *Pass) enrichFile(ctx context.Context, inDir, outDir, rel string) error {
	raw, err := os.ReadFile(filepath.Join(inDir, rel))
	if err != nil {
		return err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode transformed article: %w", err)
	}
	if len(strings.TrimSpace(doc.Content.ArticleBody)) < MinBodyLength {
		return errShortBody
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	annotation, err := p.model.Annotate(ctx, raw)
	if err != nil {
		return err
	}

	doc.Content.Summary = annotation.Summary
	doc.Content.Keywords = annotation.Keywords
	if doc.Content.Keywords == nil {
		doc.Content.Keywords = []string{}
	}
	entities := annotation.Entities
	if entities == nil {
		entities = []Entity{}
	}
	doc.Entities, err = json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode enriched article: %w", err)
	}

	outPath := filepath.Join(outDir, rel)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// pendingFiles returns, relative to inDir, every .json file missing
// from outDir, sorted for deterministic processing order.
func pendingFiles(inDir, outDir string) ([]string, error) {
	var pending []string
	err := filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(inDir, path)
		if err != nil {
			return err
		}
		if _, err := os.Stat(filepath.Join(outDir, rel)); os.IsNotExist(err) {
			pending = append(pending, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(pending)
	return pending, nil
}
