package harvest

import (
	"context"
	"time"
)

// Fetcher opens page fetch sessions. Each worker acquires exactly one
// session at pool start and keeps it for the whole batch.
type Fetcher interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session fetches article pages. Implementations may hold expensive
// state (a browser tab, a warmed HTTP client); Close must release it on
// every exit path.
type Session interface {
	Fetch(ctx context.Context, url string) (RawFields, error)
	Close() error
}

// ListProvider returns the authoritative article list for one partition.
type ListProvider interface {
	ListFor(ctx context.Context, day Day) ([]ListEntry, error)
}

// OutputStore persists article records under date partitions.
type OutputStore interface {
	// Write replaces the record at (day, key) atomically.
	Write(day Day, key string, rec ArticleRecord) error
	// Exists reports whether a record file is present.
	Exists(day Day, key string) bool
	// Read loads a record. A decode failure returns *CorruptRecordError.
	Read(day Day, key string) (ArticleRecord, error)
	// Delete removes a record file. Missing files are not an error.
	Delete(day Day, key string) error
	// Walk visits every record under the partition. Undecodable records
	// are reported with a non-nil decodeErr and a zero record.
	Walk(day Day, fn func(key string, rec ArticleRecord, decodeErr error) error) error
}

// ProgressStore loads and saves per-partition progress.
type ProgressStore interface {
	// Load returns the persisted state, or an empty one if none exists.
	Load(day Day) (*ProgressState, error)
	// Save persists the state crash-consistently (temp file + rename).
	Save(day Day, state *ProgressState) error
}

// Queue hands work items to exactly one worker each.
type Queue interface {
	Enqueue(ctx context.Context, item WorkItem) error
	Dequeue(ctx context.Context) (WorkItem, error)
	Close()
}

// Clock returns the current time (seam for tests).
type Clock interface {
	Now() time.Time
}
