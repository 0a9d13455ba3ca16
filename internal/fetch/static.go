package fetch

import (
	"context"
	"fmt"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/gocolly/colly/v2"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// StaticConfig controls the plain-HTTP fetcher.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
	Selectors Selectors
}

// StaticFetcher opens colly-backed sessions for sources that render
// server-side. Each session clones the base collector so workers never
// share collector state.
type StaticFetcher struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
}

// NewStatic builds a StaticFetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return &StaticFetcher{cfg: cfg, baseCollector: c}
}

// NewSession clones the collector and warms a converter for the worker.
func (f *StaticFetcher) NewSession(context.Context) (harvest.Session, error) {
	return &staticSession{
		collector: f.baseCollector.Clone(),
		converter: md.NewConverter("", true, nil),
		selectors: f.cfg.Selectors,
	}, nil
}

type staticSession struct {
	collector *colly.Collector
	converter *md.Converter
	selectors Selectors
}

// Fetch executes a single HTTP GET and extracts article fields.
func (s *staticSession) Fetch(ctx context.Context, url string) (harvest.RawFields, error) {
	var (
		body     []byte
		fetchErr error
	)

	collector := s.collector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil {
			fetchErr = err
		}
		collector.Wait()
	}()

	select {
	case <-ctx.Done():
		return harvest.RawFields{}, fmt.Errorf("fetch %s: %w", url, ctx.Err())
	case <-done:
	}

	if fetchErr != nil {
		return harvest.RawFields{}, fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	if len(body) == 0 {
		return harvest.RawFields{}, fmt.Errorf("fetch %s: empty response", url)
	}

	return Extract(string(body), s.selectors, s.converter)
}

// Close releases the session. Colly holds no per-session resources
// beyond the collector, which is garbage collected.
func (s *staticSession) Close() error {
	return nil
}
