package worker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/newsroomlab/harvester/internal/harvest"
	"github.com/newsroomlab/harvester/internal/metrics"
)

// Flusher checkpoints progress to durable storage every Every completed
// items and on demand at shutdown. A failed flush is logged and
// swallowed: the articles themselves are already on disk, and the next
// run's discovery re-derives what a lost checkpoint forgot.
type Flusher struct {
	store harvest.ProgressStore
	day   harvest.Day
	state *harvest.ProgressState

	mu         sync.Mutex
	every      int
	sinceFlush int
	logger     *zap.Logger
}

// NewFlusher constructs a Flusher checkpointing every `every` completions.
func NewFlusher(store harvest.ProgressStore, day harvest.Day, state *harvest.ProgressState, every int, logger *zap.Logger) *Flusher {
	if every <= 0 {
		every = 15
	}
	return &Flusher{
		store:  store,
		day:    day,
		state:  state,
		every:  every,
		logger: logger,
	}
}

// Tick records one completed item and flushes when the interval is due.
func (f *Flusher) Tick() {
	f.mu.Lock()
	f.sinceFlush++
	due := f.sinceFlush >= f.every
	if due {
		f.sinceFlush = 0
	}
	f.mu.Unlock()

	if due {
		f.Flush()
	}
}

// Flush persists the current progress state unconditionally.
func (f *Flusher) Flush() {
	if err := f.store.Save(f.day, f.state); err != nil {
		// Non-fatal: the batch continues on in-memory state.
		f.logger.Error("progress flush failed",
			zap.String("day", f.day.String()),
			zap.Error(err),
		)
		return
	}
	metrics.IncCheckpoint()
	f.logger.Debug("progress flushed", zap.String("day", f.day.String()))
}
