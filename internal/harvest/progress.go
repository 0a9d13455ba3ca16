package harvest

import "sync"

// ProgressState tracks per-partition completion. All methods are safe
// for concurrent use; workers share one instance per batch.
//
// Invariant: Scraped and Failed are disjoint. A key in neither set is
// pending or in flight.
type ProgressState struct {
	mu          sync.Mutex
	scraped     map[string]struct{}
	failed      map[string]struct{}
	retryCounts map[string]int
}

// NewProgressState returns an empty state.
func NewProgressState() *ProgressState {
	return &ProgressState{
		scraped:     make(map[string]struct{}),
		failed:      make(map[string]struct{}),
		retryCounts: make(map[string]int),
	}
}

// RestoreProgressState rebuilds a state from persisted slices/maps.
func RestoreProgressState(scraped, failed []string, retryCounts map[string]int) *ProgressState {
	s := NewProgressState()
	for _, k := range scraped {
		s.scraped[k] = struct{}{}
	}
	for _, k := range failed {
		s.failed[k] = struct{}{}
	}
	for k, n := range retryCounts {
		s.retryCounts[k] = n
	}
	return s
}

// IsScraped reports whether the key's last attempt produced a valid record.
func (s *ProgressState) IsScraped(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.scraped[key]
	return ok
}

// IsFailed reports whether the key exhausted its retries.
func (s *ProgressState) IsFailed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[key]
	return ok
}

// MarkScraped moves the key into the scraped set and clears its retry
// counter and any prior failed mark.
func (s *ProgressState) MarkScraped(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scraped[key] = struct{}{}
	delete(s.failed, key)
	delete(s.retryCounts, key)
}

// MarkFailed moves the key into the failed set.
func (s *ProgressState) MarkFailed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scraped[key]; ok {
		return
	}
	s.failed[key] = struct{}{}
}

// ResetAttempts clears the retry counter and any failed mark for a key,
// so an operator-triggered reconciliation can attempt it afresh.
func (s *ProgressState) ResetAttempts(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retryCounts, key)
	delete(s.failed, key)
}

// Attempts returns the persisted attempt count for a key.
func (s *ProgressState) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCounts[key]
}

// IncAttempts bumps and returns the attempt counter for a key.
func (s *ProgressState) IncAttempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryCounts[key]++
	return s.retryCounts[key]
}

// Snapshot copies the state for serialization.
func (s *ProgressState) Snapshot() (scraped, failed []string, retryCounts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scraped = make([]string, 0, len(s.scraped))
	for k := range s.scraped {
		scraped = append(scraped, k)
	}
	failed = make([]string, 0, len(s.failed))
	for k := range s.failed {
		failed = append(failed, k)
	}
	retryCounts = make(map[string]int, len(s.retryCounts))
	for k, n := range s.retryCounts {
		retryCounts[k] = n
	}
	return scraped, failed, retryCounts
}

// Counts returns the sizes of the scraped and failed sets.
func (s *ProgressState) Counts() (scraped, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scraped), len(s.failed)
}
