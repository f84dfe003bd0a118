package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"platewatch/internal/anpr"
)

// ErrSourceStopped is returned by AwaitFrame after Stop.
var ErrSourceStopped = errors.New("frame source stopped")

// State is the acquisition state machine's current state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

// String returns a string representation of the State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stream is an open connection to a video source.
type Stream interface {
	// Read blocks for the next frame. Any error is treated as frame loss
	// and triggers a reconnect.
	Read() (anpr.Frame, error)
	Close() error
}

// Dialer opens a Stream at the given address.
type Dialer func(url string) (Stream, error)

// gocvStream adapts gocv.VideoCapture to the Stream interface. The read
// buffer is reused between reads; published frames are clones.
type gocvStream struct {
	cap *gocv.VideoCapture
	buf gocv.Mat
}

// GocvDialer opens the stream with OpenCV's VideoCapture.
func GocvDialer(url string) (Stream, error) {
	cap, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("open video capture: %w", err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video capture at %s is not opened", url)
	}
	return &gocvStream{cap: cap, buf: gocv.NewMat()}, nil
}

func (s *gocvStream) Read() (anpr.Frame, error) {
	if !s.cap.Read(&s.buf) {
		return nil, errors.New("stream read failed")
	}
	if s.buf.Empty() {
		return nil, errors.New("empty frame")
	}
	return NewFrame(s.buf.Clone()), nil
}

func (s *gocvStream) Close() error {
	s.buf.Close()
	return s.cap.Close()
}

// Source runs the acquisition state machine on its own goroutine: connect,
// read frames into the shared slot, reconnect on any read failure. Transient
// I/O failures are never fatal; connection attempts retry indefinitely at a
// fixed backoff.
//
// The slot holds at most one live frame. The acquisition loop is its sole
// writer; readers receive clones and never block the loop.
type Source struct {
	url         string
	backoff     time.Duration
	dial        Dialer
	joinTimeout time.Duration

	log    *slog.Logger
	status anpr.StatusSink

	state atomic.Int32

	mu     sync.Mutex
	latest anpr.Frame
	notify chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSource creates a Source for the given stream address. Start must be
// called to begin acquisition.
func NewSource(url string, backoff time.Duration, dial Dialer, log *slog.Logger, status anpr.StatusSink) *Source {
	if backoff <= 0 {
		backoff = 3 * time.Second
	}
	return &Source{
		url:         url,
		backoff:     backoff,
		dial:        dial,
		joinTimeout: time.Second,
		log:         log,
		status:      status,
		notify:      make(chan struct{}),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the acquisition loop.
func (s *Source) Start() {
	go s.run()
}

// State returns the current acquisition state.
func (s *Source) State() State {
	return State(s.state.Load())
}

// Latest returns a clone of the most recent frame. The caller owns the
// clone and must Close it.
func (s *Source) Latest() (anpr.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest.Clone(), true
}

// AwaitFrame blocks until a frame is available, the context is cancelled,
// or the source stops.
func (s *Source) AwaitFrame(ctx context.Context) (anpr.Frame, error) {
	for {
		s.mu.Lock()
		if s.latest != nil {
			f := s.latest.Clone()
			s.mu.Unlock()
			return f, nil
		}
		notify := s.notify
		s.mu.Unlock()

		select {
		case <-notify:
		case <-s.stop:
			return nil, ErrSourceStopped
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop shuts the acquisition loop down. It is idempotent: the shutdown flag
// is set once, the loop is joined within a bounded timeout, and the stream
// handle is released by the loop itself.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		select {
		case <-s.done:
		case <-time.After(s.joinTimeout):
			s.log.Warn("acquisition loop did not stop in time",
				"timeout", s.joinTimeout)
			<-s.done
		}
	})
}

func (s *Source) run() {
	defer close(s.done)

	var stream Stream
	defer func() {
		if stream != nil {
			stream.Close()
		}
		s.mu.Lock()
		if s.latest != nil {
			s.latest.Close()
			s.latest = nil
		}
		s.mu.Unlock()
		s.state.Store(int32(StateStopped))
		s.log.Info("frame source stopped")
	}()

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		if stream == nil {
			s.state.Store(int32(StateConnecting))
			s.status.Post(fmt.Sprintf("Connecting to %s...", s.url))
			s.log.Info("connecting to stream", "url", s.url)

			var err error
			stream, err = s.dial(s.url)
			if err != nil {
				s.log.Warn("connect failed, retrying",
					"url", s.url,
					"error", err,
					"retry_in", s.backoff)
				if !s.sleep(s.backoff) {
					return
				}
				continue
			}

			s.state.Store(int32(StateConnected))
			s.status.Post("Camera connected.")
			s.log.Info("stream connected", "url", s.url)
		}

		frame, err := stream.Read()
		if err != nil {
			s.log.Warn("frame read failed, reconnecting", "error", err)
			stream.Close()
			stream = nil
			s.state.Store(int32(StateDisconnected))
			continue
		}
		s.publish(frame)
	}
}

// publish replaces the slot's frame and wakes blocked readers. The critical
// section is a pointer swap; no consumer work happens under the lock.
func (s *Source) publish(f anpr.Frame) {
	s.mu.Lock()
	if s.latest != nil {
		s.latest.Close()
	}
	s.latest = f
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()
}

// sleep waits for d, returning false if the source was stopped meanwhile.
func (s *Source) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-s.stop:
		return false
	}
}
