// Package discover builds work queues for fresh and reconciliation runs.
package discover

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/hash/keyid"
)

// DateTolerance is how far a stored publish date may drift from the
// authoritative list before reconciliation treats it as a defect.
// Sub-day drift is usually timezone skew on the source page, not a bad
// record.
const DateTolerance = 24 * time.Hour

// Discoverer derives work items from the authoritative list and from
// existing output records.
type Discoverer struct {
	list   harvest.ListProvider
	out    harvest.OutputStore
	minLen int
	logger *zap.Logger
}

// New constructs a Discoverer.
func New(list harvest.ListProvider, out harvest.OutputStore, minContentLength int, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		list:   list,
		out:    out,
		minLen: minContentLength,
		logger: logger,
	}
}

// Fresh emits one item per authoritative list entry whose key is not
// already scraped. An entry whose existing output record is invalid is
// re-emitted with Force set, overriding the scraped check.
func (d *Discoverer) Fresh(ctx context.Context, day harvest.Day, state *harvest.ProgressState) ([]harvest.WorkItem, error) {
	entries, err := d.list.ListFor(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("authoritative list for %s: %w", day, err)
	}

	var items []harvest.WorkItem
	for _, entry := range entries {
		entry := entry
		key := keyid.FromURL(entry.Link)
		item := harvest.WorkItem{
			Key:       key,
			Partition: day,
			Link:      entry.Link,
			Hint:      &entry,
		}

		if d.out.Exists(day, key) {
			rec, readErr := d.out.Read(day, key)
			if readErr == nil && !rec.Valid(d.minLen) {
				item.Force = true
				items = append(items, item)
				continue
			}
			// Corrupt records are handled by reconciliation; fresh mode
			// only forces known-invalid ones.
		}

		if state.IsScraped(key) {
			continue
		}
		items = append(items, item)
	}

	d.logger.Info("fresh discovery complete",
		zap.String("day", day.String()),
		zap.Int("list_entries", len(entries)),
		zap.Int("queued", len(items)),
	)
	return items, nil
}

// Reconcile walks every output record under the partition and emits an
// item for each defective one: invalid content, publish date
// disagreeing with the authoritative list, or a record that fails to
// parse (deleted on the spot, then re-queued as never attempted).
func (d *Discoverer) Reconcile(ctx context.Context, day harvest.Day) ([]harvest.WorkItem, error) {
	entries, err := d.list.ListFor(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("authoritative list for %s: %w", day, err)
	}
	byKey := make(map[string]harvest.ListEntry, len(entries))
	for _, entry := range entries {
		byKey[keyid.FromURL(entry.Link)] = entry
	}

	var items []harvest.WorkItem
	walkErr := d.out.Walk(day, func(key string, rec harvest.ArticleRecord, decodeErr error) error {
		if decodeErr != nil {
			// Unreadable records cannot be repaired in place.
			if delErr := d.out.Delete(day, key); delErr != nil {
				return delErr
			}
			d.logger.Warn("deleted corrupt record",
				zap.String("day", day.String()),
				zap.String("key", key),
				zap.Error(decodeErr),
			)
			items = append(items, d.itemFor(day, key, rec, byKey))
			return nil
		}

		if !rec.Valid(d.minLen) {
			items = append(items, d.itemFor(day, key, rec, byKey))
			return nil
		}
		if entry, ok := byKey[key]; ok && DateMismatch(rec.PublishedAt, entry.PublishedAt) {
			items = append(items, d.itemFor(day, key, rec, byKey))
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk partition %s: %w", day, walkErr)
	}

	d.logger.Info("reconciliation discovery complete",
		zap.String("day", day.String()),
		zap.Int("defects", len(items)),
	)
	return items, nil
}

func (d *Discoverer) itemFor(day harvest.Day, key string, rec harvest.ArticleRecord, byKey map[string]harvest.ListEntry) harvest.WorkItem {
	item := harvest.WorkItem{Key: key, Partition: day, Link: rec.Link, Force: true}
	if entry, ok := byKey[key]; ok {
		entry := entry
		item.Link = entry.Link
		item.Hint = &entry
	}
	return item
}

// DateMismatch reports whether a stored publish date and the list's
// timestamp disagree. Only applies when both are known; drift within
// DateTolerance is accepted.
func DateMismatch(stored, listed *time.Time) bool {
	if stored == nil || listed == nil {
		return false
	}
	diff := stored.Sub(*listed)
	if diff < 0 {
		diff = -diff
	}
	return diff > DateTolerance
}
