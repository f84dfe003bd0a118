package anpr

import "sync"

// DefaultHistorySize bounds the per-bucket reading history.
const DefaultHistorySize = 10

// Stabilizer reduces the noisy stream of per-frame OCR readings to one
// stable value per spatial bucket. Each bucket keeps a bounded FIFO of the
// most recent non-empty readings; the stable value is the majority vote.
//
// Bucket keys quantize box coordinates, so two physically distinct plates
// that sit very close on screen can share a bucket. That approximation is
// inherited deliberately; tracking plates by identity is out of scope.
//
// Buckets are never deleted. The key space is a coarse quantization of a
// bounded frame, so it stays small for the pipeline's lifetime.
type Stabilizer struct {
	mu      sync.Mutex
	size    int
	history map[string][]string
}

// NewStabilizer creates a Stabilizer keeping up to historySize readings
// per bucket.
func NewStabilizer(historySize int) *Stabilizer {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Stabilizer{
		size:    historySize,
		history: make(map[string][]string),
	}
}

// Observe appends a reading to the bucket's history, evicting the oldest
// entry once the bound is reached. Empty readings are ignored so that OCR
// failures do not dilute the vote.
func (s *Stabilizer) Observe(bucket, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[bucket]
	if len(h) == s.size {
		h = h[1:]
	}
	s.history[bucket] = append(h, text)
}

// StableText returns the most frequent reading in the bucket's current
// history, or an empty string for an empty bucket. Ties go to the reading
// observed earliest among the tied values.
func (s *Stabilizer) StableText(bucket string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.history[bucket]
	if len(h) == 0 {
		return ""
	}

	counts := make(map[string]int, len(h))
	for _, t := range h {
		counts[t]++
	}

	best, bestCount := "", 0
	for _, t := range h {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}
	return best
}
