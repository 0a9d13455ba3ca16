package fetch

import (
	"context"
	"fmt"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/newsroomlab/harvester/internal/harvest"
)

// HeadlessConfig controls the browser-backed fetcher.
type HeadlessConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	Selectors         Selectors
}

// HeadlessFetcher renders pages with chromedp for sources that build
// their articles client-side. One browser process is shared; each
// worker session owns a dedicated tab for the whole batch, which
// amortizes tab setup across items.
type HeadlessFetcher struct {
	cfg         HeadlessConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewHeadless creates the fetcher and its exec allocator.
func NewHeadless(cfg HeadlessConfig) (*HeadlessFetcher, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &HeadlessFetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down. Call after all sessions are closed.
func (f *HeadlessFetcher) Close() {
	f.allocCancel()
}

// NewSession opens one tab bound to the calling worker.
func (f *HeadlessFetcher) NewSession(context.Context) (harvest.Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.allocator)
	// Start the tab eagerly so session setup cost is paid once, not on
	// the first item.
	if err := chromedp.Run(tabCtx, emulation.SetDeviceMetricsOverride(1280, 1024, 1.0, false)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open browser tab: %w", err)
	}
	return &headlessSession{
		fetcher:   f,
		tabCtx:    tabCtx,
		tabCancel: tabCancel,
		converter: md.NewConverter("", true, nil),
	}, nil
}

type headlessSession struct {
	fetcher   *HeadlessFetcher
	tabCtx    context.Context
	tabCancel context.CancelFunc
	converter *md.Converter
}

// Fetch navigates the session's tab and extracts article fields from
// the rendered DOM.
func (s *headlessSession) Fetch(ctx context.Context, url string) (harvest.RawFields, error) {
	timeout := s.fetcher.cfg.NavigationTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	navCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return harvest.RawFields{}, fmt.Errorf("render %s: %w", url, err)
	}

	return Extract(html, s.fetcher.cfg.Selectors, s.converter)
}

// Close releases the tab.
func (s *headlessSession) Close() error {
	s.tabCancel()
	return nil
}
