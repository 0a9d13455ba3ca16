package harvest

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestArticleRecordValid(t *testing.T) {
	t.Parallel()

	long := "This body comfortably clears the fifty character minimum threshold."
	short := "too short"
	padded := "   \n\t  "

	cases := []struct {
		name    string
		content *string
		want    bool
	}{
		{"NilContent", nil, false},
		{"LongContent", &long, true},
		{"ShortContent", &short, false},
		{"WhitespaceOnly", &padded, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := ArticleRecord{Content: tc.content}
			if got := rec.Valid(50); got != tc.want {
				t.Fatalf("Valid(50) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestProgressStateTransitions(t *testing.T) {
	t.Parallel()

	s := NewProgressState()
	s.IncAttempts("k")
	s.IncAttempts("k")
	if got := s.Attempts("k"); got != 2 {
		t.Fatalf("Attempts = %d, want 2", got)
	}

	s.MarkFailed("k")
	if !s.IsFailed("k") {
		t.Fatal("expected k failed")
	}

	// Success clears both the failure mark and the counter.
	s.MarkScraped("k")
	if s.IsFailed("k") {
		t.Fatal("scraped and failed must stay disjoint")
	}
	if got := s.Attempts("k"); got != 0 {
		t.Fatalf("Attempts after scrape = %d, want 0", got)
	}

	// A later failure mark cannot displace a scraped key.
	s.MarkFailed("k")
	if s.IsFailed("k") || !s.IsScraped("k") {
		t.Fatal("MarkFailed must not override a scraped key")
	}
}

func TestProgressStateConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewProgressState()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.IncAttempts("shared")
			}
		}()
	}
	wg.Wait()
	if got := s.Attempts("shared"); got != 800 {
		t.Fatalf("Attempts = %d, want 800", got)
	}
}

func TestRestoreSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewProgressState()
	s.MarkScraped("a")
	s.MarkFailed("b")
	s.IncAttempts("c")

	scraped, failed, counts := s.Snapshot()
	restored := RestoreProgressState(scraped, failed, counts)
	if !restored.IsScraped("a") || !restored.IsFailed("b") || restored.Attempts("c") != 1 {
		t.Fatalf("restored state does not match: %v %v %v", scraped, failed, counts)
	}
}

func TestDayParseFormatRange(t *testing.T) {
	t.Parallel()

	d, err := ParseDay("2025-03-14")
	if err != nil {
		t.Fatalf("ParseDay error = %v", err)
	}
	if d.String() != "2025-03-14" {
		t.Fatalf("String = %s", d.String())
	}
	if d.Path() != "2025/03/14" {
		t.Fatalf("Path = %s", d.Path())
	}

	if _, err := ParseDay("14-03-2025"); err == nil {
		t.Fatal("expected parse error")
	}

	from, _ := ParseDay("2025-03-30")
	to, _ := ParseDay("2025-04-02")
	days := DayRange(from, to)
	if len(days) != 4 {
		t.Fatalf("expected 4 days, got %d", len(days))
	}
	if days[2].String() != "2025-04-01" {
		t.Fatalf("month rollover broken: %s", days[2])
	}
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()

	if !Retryable(ErrEmptyContent) {
		t.Fatal("empty content must be retryable")
	}
	te := &TransportError{URL: "https://example.com", Err: errors.New("timeout")}
	if !Retryable(te) {
		t.Fatal("transport errors must be retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if Retryable(errors.New("unclassified")) {
		t.Fatal("unclassified errors are not retryable")
	}
	if !errors.Is(te, te.Err) && te.Unwrap() == nil {
		t.Fatal("transport error must unwrap")
	}
}

func TestSummaryTotals(t *testing.T) {
	t.Parallel()

	s := Summary{Succeeded: 3, Failed: 1, Skipped: 2}
	if s.Total() != 6 {
		t.Fatalf("Total = %d", s.Total())
	}
	s.Add(Summary{Succeeded: 1})
	if s.Succeeded != 4 {
		t.Fatalf("Add failed: %+v", s)
	}
}

func TestDayOfTruncates(t *testing.T) {
	t.Parallel()

	d := DayOf(time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC))
	if d.String() != "2025-12-31" {
		t.Fatalf("DayOf = %s", d)
	}
	if d.Next().String() != "2026-01-01" {
		t.Fatalf("Next = %s", d.Next())
	}
}
