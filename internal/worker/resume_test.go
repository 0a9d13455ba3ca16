package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/discover"
	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/hash/keyid"
	"github.com/newsroomlab/harvester/internal/store/output"
	"github.com/newsroomlab/harvester/internal/store/progress"
)

const minLen = 50

// A run that dies between checkpoints must lose at most one flush
// interval of completions: the next run reloads the last flushed state
// and discovery re-queues only the unflushed completions and the work
// never attempted.
func TestResumeAfterLostCheckpoint(t *testing.T) {
	t.Parallel()

	const (
		listSize  = 20
		completed = 12
		every     = 5
	)

	d := testDay(t)
	progStore, err := progress.New(progress.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("progress.New error = %v", err)
	}
	outStore, err := output.New(output.Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("output.New error = %v", err)
	}

	links := make([]string, listSize)
	entries := make([]harvest.ListEntry, listSize)
	for i := range links {
		links[i] = fmt.Sprintf("https://news.example/story-%02d", i)
		entries[i] = harvest.ListEntry{Link: links[i]}
	}

	// First run: 12 items complete, checkpointing every 5, then the
	// process dies. The in-memory state simply goes away.
	state := harvest.NewProgressState()
	flusher := NewFlusher(progStore, d, state, every, zap.NewNop())
	body := "A perfectly serviceable article body that is clearly longer than fifty characters."
	for i := 0; i < completed; i++ {
		key := keyid.FromURL(links[i])
		if err := outStore.Write(d, key, harvest.ArticleRecord{
			Source:      "dawn",
			Link:        links[i],
			Content:     &body,
			RetrievedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("Write(%s) error = %v", key, err)
		}
		state.MarkScraped(key)
		flusher.Tick()
	}

	// Second run: reload from disk. Only the completions covered by the
	// last flush (ticks 1..10) survived.
	reloaded, err := progStore.Load(d)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	scraped, failed := reloaded.Counts()
	if scraped != 10 || failed != 0 {
		t.Fatalf("reloaded state = %d scraped, %d failed, want 10, 0", scraped, failed)
	}

	disc := discover.New(&staticList{entries: entries}, outStore, minLen, zap.NewNop())
	items, err := disc.Fresh(context.Background(), d, reloaded)
	if err != nil {
		t.Fatalf("Fresh error = %v", err)
	}

	queued := map[string]bool{}
	for _, it := range items {
		if it.Force {
			t.Fatalf("item %s forced; its record on disk is valid", it.Link)
		}
		queued[it.Link] = true
	}
	if len(items) != listSize-10 {
		t.Fatalf("re-queued %d items, want %d", len(items), listSize-10)
	}
	for i := 0; i < 10; i++ {
		if queued[links[i]] {
			t.Fatalf("flushed completion %s re-queued", links[i])
		}
	}
	for i := 10; i < listSize; i++ {
		if !queued[links[i]] {
			t.Fatalf("expected %s in the resumed queue", links[i])
		}
	}
}

type staticList struct {
	entries []harvest.ListEntry
}

func (s *staticList) ListFor(context.Context, harvest.Day) ([]harvest.ListEntry, error) {
	return s.entries, nil
}
