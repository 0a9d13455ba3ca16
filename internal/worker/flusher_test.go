package worker

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/harvest"
)

type recordingProgressStore struct {
	mu    sync.Mutex
	saves int
	fail  bool
}

func (r *recordingProgressStore) Load(harvest.Day) (*harvest.ProgressState, error) {
	return harvest.NewProgressState(), nil
}

func (r *recordingProgressStore) Save(harvest.Day, *harvest.ProgressState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.saves++
	return nil
}

func (r *recordingProgressStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func testDay(t *testing.T) harvest.Day {
	t.Helper()
	d, err := harvest.ParseDay("2025-03-14")
	if err != nil {
		t.Fatalf("ParseDay error = %v", err)
	}
	return d
}

func TestFlusherFlushesEveryInterval(t *testing.T) {
	t.Parallel()

	store := &recordingProgressStore{}
	f := NewFlusher(store, testDay(t), harvest.NewProgressState(), 5, zap.NewNop())

	for i := 0; i < 12; i++ {
		f.Tick()
	}
	if got := store.count(); got != 2 {
		t.Fatalf("expected 2 interval flushes after 12 ticks, got %d", got)
	}

	f.Flush()
	if got := store.count(); got != 3 {
		t.Fatalf("expected explicit flush to save, got %d", got)
	}
}

func TestFlusherSaveFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	store := &recordingProgressStore{fail: true}
	f := NewFlusher(store, testDay(t), harvest.NewProgressState(), 1, zap.NewNop())

	// Must not panic or propagate.
	f.Tick()
	f.Flush()
}

func TestFlusherDefaultInterval(t *testing.T) {
	t.Parallel()

	store := &recordingProgressStore{}
	f := NewFlusher(store, testDay(t), harvest.NewProgressState(), 0, zap.NewNop())
	for i := 0; i < 14; i++ {
		f.Tick()
	}
	if got := store.count(); got != 0 {
		t.Fatalf("no flush expected before 15 ticks, got %d", got)
	}
	f.Tick()
	if got := store.count(); got != 1 {
		t.Fatalf("expected flush at 15th tick, got %d", got)
	}
}
