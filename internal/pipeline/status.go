// Package pipeline wires the detection, stabilization and enrichment
// stages together and runs them under the concurrency discipline of the
// system: one acquisition loop, one-shot capture workers and a throttled
// live scanner sharing the same session state.
package pipeline

import "platewatch/internal/anpr"

// ChanSink is a StatusSink backed by a buffered channel. Posting never
// blocks; messages are dropped when the consumer lags.
type ChanSink struct {
	C chan string
}

// NewChanSink creates a sink with the given buffer size.
func NewChanSink(buf int) *ChanSink {
	return &ChanSink{C: make(chan string, buf)}
}

// Post delivers msg to the channel if there is room.
func (s *ChanSink) Post(msg string) {
	select {
	case s.C <- msg:
	default:
	}
}

// NopSink discards all messages.
type NopSink struct{}

// Post implements anpr.StatusSink.
func (NopSink) Post(string) {}

var _ anpr.StatusSink = (*ChanSink)(nil)
var _ anpr.StatusSink = NopSink{}
