package pipeline

import "sync"

// DedupSet is the session-scoped set of plates already processed. Add is
// the single source of truth for "is this plate new": its atomic
// insert-if-absent is the commit point that makes enrichment at-most-once
// under concurrent one-shot and live submissions.
type DedupSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDedupSet creates an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[string]struct{})}
}

// Add inserts text and reports whether it was absent before the call.
func (s *DedupSet) Add(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[text]; ok {
		return false
	}
	s.seen[text] = struct{}{}
	return true
}

// Contains reports membership without inserting.
func (s *DedupSet) Contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[text]
	return ok
}

// Len returns the number of plates processed this session.
func (s *DedupSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Reset clears the session.
func (s *DedupSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}
