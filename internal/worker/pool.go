// Package worker implements the bounded-concurrency harvest loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/metrics"
	"github.com/newsroomlab/harvester/internal/queue/memory"
)

// Config controls the pool.
type Config struct {
	Source           string
	Concurrency      int
	MinContentLength int
	FetchTimeout     time.Duration
}

// Pool drains a queue of work items with a fixed number of workers.
// Each worker owns one fetch session for the whole batch; a key is only
// ever held by one worker at a time, so per-key attempts are strictly
// sequential.
type Pool struct {
	queue   harvest.Queue
	fetcher harvest.Fetcher
	out     harvest.OutputStore
	state   *harvest.ProgressState
	flusher *Flusher
	policy  RetryPolicy
	clock   harvest.Clock
	cfg     Config
	logger  *zap.Logger

	mu      sync.Mutex
	summary harvest.Summary
}

// New constructs a Pool.
func New(
	queue harvest.Queue,
	fetcher harvest.Fetcher,
	out harvest.OutputStore,
	state *harvest.ProgressState,
	flusher *Flusher,
	policy RetryPolicy,
	clock harvest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 45 * time.Second
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 50
	}
	return &Pool{
		queue:   queue,
		fetcher: fetcher,
		out:     out,
		state:   state,
		flusher: flusher,
		policy:  policy,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run feeds the items through the queue and blocks until every worker
// drains out. Per-item failures never abort the batch; the returned
// error is reserved for catastrophic conditions such as a worker that
// cannot open its fetch session.
func (p *Pool) Run(ctx context.Context, items []harvest.WorkItem) (harvest.Summary, error) {
	go func() {
		defer p.queue.Close()
		for _, item := range items {
			if err := p.queue.Enqueue(ctx, item); err != nil {
				return
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error {
			return p.runWorker(gctx, id)
		})
	}
	err := g.Wait()

	p.flusher.Flush()

	p.mu.Lock()
	summary := p.summary
	p.mu.Unlock()
	return summary, err
}

func (p *Pool) runWorker(ctx context.Context, id int) error {
	session, err := p.fetcher.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: open fetch session: %w", id, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			p.logger.Warn("session close failed", zap.Int("worker", id), zap.Error(cerr))
		}
	}()

	metrics.WorkerStarted()
	defer metrics.WorkerStopped()

	for {
		item, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, memory.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: dequeue: %w", id, err)
		}
		p.processItem(ctx, session, item)
	}
}

func (p *Pool) processItem(ctx context.Context, session harvest.Session, item harvest.WorkItem) {
	log := p.logger.With(
		zap.String("source", p.cfg.Source),
		zap.String("day", item.Partition.String()),
		zap.String("key", item.Key),
	)

	if !item.Force && p.state.IsScraped(item.Key) {
		p.count(func(s *harvest.Summary) { s.Skipped++ })
		metrics.IncItem(p.cfg.Source, "skipped")
		log.Debug("item already scraped, skipping")
		return
	}
	if item.Force {
		// Forced items are operator re-triggers; give them a fresh
		// retry budget even if the key previously exhausted it.
		p.state.ResetAttempts(item.Key)
	}

	var lastInvalid *harvest.ArticleRecord
	for p.policy.ShouldAttempt(p.state.Attempts(item.Key)) {
		attempt := p.state.IncAttempts(item.Key)
		if attempt > 1 {
			metrics.IncRetry(p.cfg.Source)
		}

		rec, err := p.attempt(ctx, session, item)
		if err == nil {
			if werr := p.out.Write(item.Partition, item.Key, rec); werr != nil {
				// Output store failure is not the page's fault; retry.
				log.Error("record write failed", zap.Int("attempt", attempt), zap.Error(werr))
			} else {
				p.state.MarkScraped(item.Key)
				p.count(func(s *harvest.Summary) { s.Succeeded++ })
				metrics.IncItem(p.cfg.Source, "succeeded")
				p.flusher.Tick()
				log.Debug("item scraped", zap.Int("attempt", attempt))
				return
			}
		} else {
			if errors.Is(err, harvest.ErrEmptyContent) {
				rec := rec
				lastInvalid = &rec
			}
			log.Warn("attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}

		if ctx.Err() != nil {
			// Interrupted mid-key: leave it pending for the next run.
			return
		}
		if p.policy.ShouldAttempt(p.state.Attempts(item.Key)) {
			p.sleep(ctx, p.policy.Backoff(attempt))
		}
	}

	// Retries exhausted. Persist the last invalid fetch, if any, so the
	// "fetched but useless" state is visible to reconciliation.
	if lastInvalid != nil {
		if werr := p.out.Write(item.Partition, item.Key, *lastInvalid); werr != nil {
			p.logger.Error("invalid record write failed", zap.String("key", item.Key), zap.Error(werr))
		}
	}
	p.state.MarkFailed(item.Key)
	p.count(func(s *harvest.Summary) { s.Failed++ })
	metrics.IncItem(p.cfg.Source, "failed")
	p.flusher.Tick()
	log.Warn("item failed permanently",
		zap.Int("attempts", p.state.Attempts(item.Key)),
		zap.Error(harvest.ErrMaxRetries),
	)
}

// attempt runs one fetch and builds the candidate record. The fetch is
// shielded from batch cancellation: an interrupt lets in-flight
// navigations finish or time out naturally.
func (p *Pool) attempt(ctx context.Context, session harvest.Session, item harvest.WorkItem) (harvest.ArticleRecord, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	fields, err := session.Fetch(fetchCtx, item.Link)
	metrics.ObserveFetch(p.cfg.Source, time.Since(start))
	if err != nil {
		return harvest.ArticleRecord{}, &harvest.TransportError{URL: item.Link, Err: err}
	}

	rec := p.buildRecord(item, fields)
	if !rec.Valid(p.cfg.MinContentLength) {
		return rec, harvest.ErrEmptyContent
	}
	return rec, nil
}

func (p *Pool) buildRecord(item harvest.WorkItem, fields harvest.RawFields) harvest.ArticleRecord {
	rec := harvest.ArticleRecord{
		Source:      p.cfg.Source,
		Link:        item.Link,
		Title:       fields.Title,
		Author:      fields.Author,
		PublishedAt: fields.PublishedAt,
		RetrievedAt: p.clock.Now(),
		Image:       fields.Image,
		Tags:        fields.Tags,
		Categories:  fields.Categories,
	}
	if fields.Content != "" {
		content := fields.Content
		rec.Content = &content
	}
	if rec.Title == "" && item.Hint != nil {
		rec.Title = item.Hint.Title
	}
	if rec.PublishedAt == nil && item.Hint != nil {
		rec.PublishedAt = item.Hint.PublishedAt
	}
	return rec
}

func (p *Pool) count(mutate func(*harvest.Summary)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(&p.summary)
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
