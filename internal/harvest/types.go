// Package harvest defines core types shared across subsystems.
package harvest

import (
	"strings"
	"time"
)

// Mode selects how work discovery builds the queue.
type Mode string

// Discovery modes.
const (
	ModeFresh     Mode = "fresh"
	ModeReconcile Mode = "reconcile"
)

// ListEntry is one row of the authoritative article list for a partition.
type ListEntry struct {
	Link        string
	Title       string
	PublishedAt *time.Time
}

// WorkItem is a single unit of fetch-and-store work. Items are immutable
// after discovery; attempt counters live in ProgressState, not here.
type WorkItem struct {
	// Key is derived deterministically from the canonical source URL.
	Key string
	// Partition is the logical day the item belongs to.
	Partition Day
	// Link is the article URL to fetch.
	Link string
	// Hint carries authoritative list metadata when known.
	Hint *ListEntry
	// Force bypasses the already-scraped skip check. Discovery sets it
	// when an existing output record is invalid and must be refetched.
	Force bool
}

// RawFields is what a page fetcher extracts from one article page.
type RawFields struct {
	Title       string
	Content     string
	Author      string
	Tags        []string
	Categories  []string
	Image       string
	PublishedAt *time.Time
}

// ArticleRecord is the persisted output for one (partition, key).
// A nil Content is a first-class state: the fetch happened but yielded
// nothing usable.
type ArticleRecord struct {
	Source      string     `json:"source"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Content     *string    `json:"content"`
	PublishedAt *time.Time `json:"date_published,omitempty"`
	RetrievedAt time.Time  `json:"retrievedAt"`
	Image       string     `json:"image,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Categories  []string   `json:"categories,omitempty"`
}

// Valid reports whether the record's content passes the validity
// predicate: non-null and at least minLen characters after trimming.
func (r ArticleRecord) Valid(minLen int) bool {
	if r.Content == nil {
		return false
	}
	return len(strings.TrimSpace(*r.Content)) >= minLen
}

// Summary aggregates the outcome of one worker pool run.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
}

// Total returns the number of items the pool consumed.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}

// Add folds another summary into this one.
func (s *Summary) Add(other Summary) {
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}
