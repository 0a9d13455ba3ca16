// Package sources holds per-publication scrape strategies: which archive
// page lists a day's articles, which selectors find the article fields,
// and whether the pages need a browser to render. The orchestration core
// stays source-agnostic and receives everything through interfaces.
package sources

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/fetch"
	"github.com/newsroomlab/harvester/internal/harvest"
)

// Source describes one publication.
type Source struct {
	// Name is the stable identifier used in paths and progress files.
	Name string
	// Headless selects the browser-backed fetcher over plain HTTP.
	Headless bool
	// Selectors locate article fields on a story page.
	Selectors fetch.Selectors
	// ArchiveURL yields the URL of the page listing a day's articles.
	ArchiveURL func(day harvest.Day) string
	// ArchiveLink selects anchor elements on the archive page whose
	// href points at an article.
	ArchiveLink string
}

// FetcherConfig carries the knobs a source needs to build its fetcher.
type FetcherConfig struct {
	UserAgent    string
	FetchTimeout time.Duration
	NavTimeout   time.Duration
}

// NewFetcher builds the right fetcher for the source. The returned
// cleanup func must be called once all sessions are closed; it is a
// no-op for static sources.
func (s *Source) NewFetcher(cfg FetcherConfig) (harvest.Fetcher, func(), error) {
	if s.Headless {
		hf, err := fetch.NewHeadless(fetch.HeadlessConfig{
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.NavTimeout,
			Selectors:         s.Selectors,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("source %s: %w", s.Name, err)
		}
		return hf, hf.Close, nil
	}
	sf := fetch.NewStatic(fetch.StaticConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
		Selectors: s.Selectors,
	})
	return sf, func() {}, nil
}

// ListProviderConfig carries archive-scrape settings.
type ListProviderConfig struct {
	UserAgent string
	Timeout   time.Duration
	// Delay is the fixed pause between archive page requests.
	Delay  time.Duration
	Logger *zap.Logger
}

var registry = map[string]*Source{}

func register(s *Source) {
	registry[s.Name] = s
}

// Get looks a source up by name.
func Get(name string) (*Source, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %v)", name, Names())
	}
	return s, nil
}

// Names lists all registered sources, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
