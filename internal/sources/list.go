package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// archiveListProvider scrapes a source's daily archive page for the
// authoritative article list. A fixed-delay limiter spaces out requests
// so date-range runs do not hammer the archive.
type archiveListProvider struct {
	source    *Source
	collector *colly.Collector
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewListProvider builds the archive scraper for this source.
func (s *Source) NewListProvider(cfg ListProviderConfig) harvest.ListProvider {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &archiveListProvider{
		source:    s,
		collector: c,
		limiter:   limiter,
		logger:    logger,
	}
}

// ListFor fetches and parses the archive page for one day.
func (p *archiveListProvider) ListFor(ctx context.Context, day harvest.Day) ([]harvest.ListEntry, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("list %s %s: %w", p.source.Name, day, err)
	}

	archiveURL := p.source.ArchiveURL(day)
	base, err := url.Parse(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("list %s %s: bad archive url: %w", p.source.Name, day, err)
	}

	published := day.Time()
	seen := make(map[string]struct{})
	var entries []harvest.ListEntry
	var fetchErr error

	collector := p.collector.Clone()
	collector.OnHTML(p.source.ArchiveLink, func(e *colly.HTMLElement) {
		href := strings.TrimSpace(e.Attr("href"))
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := base.ResolveReference(ref).String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		entries = append(entries, harvest.ListEntry{
			Link:        link,
			Title:       strings.TrimSpace(e.Text),
			PublishedAt: &published,
		})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(archiveURL); err != nil {
			fetchErr = err
		}
		collector.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list %s %s: %w", p.source.Name, day, ctx.Err())
	case <-done:
	}

	if fetchErr != nil {
		return nil, fmt.Errorf("list %s %s: %w", p.source.Name, day, fetchErr)
	}

	p.logger.Debug("archive page listed",
		zap.String("source", p.source.Name),
		zap.String("date", day.String()),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

// DefaultListDelay spaces archive requests when config leaves the
// delay unset.
const DefaultListDelay = time.Second
