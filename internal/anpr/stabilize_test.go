package anpr

import (
	"fmt"
	"sync"
	"testing"
)

func TestStabilizerMajorityVote(t *testing.T) {
	s := NewStabilizer(DefaultHistorySize)

	for _, text := range []string{"MH12AB1234", "MH12AB1234", "MH1ZAB1234"} {
		s.Observe("b1", text)
	}

	if got := s.StableText("b1"); got != "MH12AB1234" {
		t.Errorf("StableText() = %q, want %q", got, "MH12AB1234")
	}
}

func TestStabilizerEmptyBucket(t *testing.T) {
	s := NewStabilizer(5)
	if got := s.StableText("never-observed"); got != "" {
		t.Errorf("StableText() on empty bucket = %q, want empty", got)
	}
}

func TestStabilizerIgnoresEmptyReadings(t *testing.T) {
	s := NewStabilizer(5)
	s.Observe("b1", "")
	s.Observe("b1", "KA01MN4455")
	s.Observe("b1", "")

	if got := s.StableText("b1"); got != "KA01MN4455" {
		t.Errorf("StableText() = %q, want %q", got, "KA01MN4455")
	}
}

func TestStabilizerBoundedHistory(t *testing.T) {
	const size = 4
	s := NewStabilizer(size)

	// Fill the bucket with one value, then push it out one entry at a time.
	for i := 0; i < size; i++ {
		s.Observe("b1", "OLD")
	}
	for i := 0; i < size; i++ {
		s.Observe("b1", "NEW")
	}

	if got := len(s.history["b1"]); got != size {
		t.Fatalf("history length = %d, want %d", got, size)
	}
	if got := s.StableText("b1"); got != "NEW" {
		t.Errorf("StableText() after eviction = %q, want %q", got, "NEW")
	}
}

func TestStabilizerEvictsOldestFirst(t *testing.T) {
	s := NewStabilizer(3)
	for _, text := range []string{"A", "B", "C", "D"} {
		s.Observe("b1", text)
	}

	want := []string{"B", "C", "D"}
	got := s.history["b1"]
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history = %v, want %v", got, want)
		}
	}
}

func TestStabilizerTieBreaksOnFirstObserved(t *testing.T) {
	s := NewStabilizer(10)
	for _, text := range []string{"FIRST", "SECOND", "SECOND", "FIRST"} {
		s.Observe("b1", text)
	}

	if got := s.StableText("b1"); got != "FIRST" {
		t.Errorf("StableText() tie = %q, want %q", got, "FIRST")
	}
}

func TestStabilizerBucketsAreIndependent(t *testing.T) {
	s := NewStabilizer(5)
	s.Observe("left", "MH12AB1234")
	s.Observe("right", "DL1CA4455")

	if got := s.StableText("left"); got != "MH12AB1234" {
		t.Errorf("StableText(left) = %q", got)
	}
	if got := s.StableText("right"); got != "DL1CA4455" {
		t.Errorf("StableText(right) = %q", got)
	}
}

func TestStabilizerConcurrentObserve(t *testing.T) {
	s := NewStabilizer(DefaultHistorySize)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			bucket := fmt.Sprintf("b%d", g%2)
			for i := 0; i < 100; i++ {
				s.Observe(bucket, "MH12AB1234")
				_ = s.StableText(bucket)
			}
		}(g)
	}
	wg.Wait()

	for _, bucket := range []string{"b0", "b1"} {
		if got := s.StableText(bucket); got != "MH12AB1234" {
			t.Errorf("StableText(%s) = %q, want %q", bucket, got, "MH12AB1234")
		}
		if got := len(s.history[bucket]); got > DefaultHistorySize {
			t.Errorf("history length %d exceeds bound %d", got, DefaultHistorySize)
		}
	}
}
