package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"platewatch/internal/anpr"
)

// fakeProvider serves a fixed frame, or none.
type fakeProvider struct {
	frame anpr.Frame
}

func (p *fakeProvider) Latest() (anpr.Frame, bool) {
	if p.frame == nil {
		return nil, false
	}
	return p.frame.Clone(), true
}

func newTestRunner(provider FrameProvider, enriched *fakeEnrichedLog, text string) *Runner {
	// One high-confidence plate-shaped row; the recognizer determines
	// what it reads.
	det := &fakeDetector{rows: []anpr.RawDetection{plateRow(0.9)}}
	stage := NewDetectionStage(det, &fakeRecognizer{text: text}, defaultStageConfig(), testLogger())
	orch := newTestOrchestrator(ModeLive, &fakeLookup{}, &fakeBasicLog{}, enriched)
	return NewRunner(
		provider,
		stage,
		anpr.NewStabilizer(anpr.DefaultHistorySize),
		orch,
		RunnerConfig{QuantizationFactor: 20, LiveInterval: 5 * time.Millisecond},
		NopSink{},
		testLogger(),
	)
}

func TestRunnerCaptureWithoutFrame(t *testing.T) {
	r := newTestRunner(&fakeProvider{}, &fakeEnrichedLog{}, "")

	_, err := r.CaptureOnce(context.Background())
	if !errors.Is(err, anpr.ErrNoFrame) {
		t.Errorf("CaptureOnce() error = %v, want ErrNoFrame", err)
	}
}

func TestRunnerCaptureProcessesAndPersists(t *testing.T) {
	enriched := &fakeEnrichedLog{}
	r := newTestRunner(&fakeProvider{frame: &fakeFrame{}}, enriched, "MH12AC1234")

	valid, err := r.CaptureOnce(context.Background())
	if err != nil {
		t.Fatalf("CaptureOnce() error = %v", err)
	}
	if valid != 1 {
		t.Errorf("valid = %d, want 1", valid)
	}
	if len(enriched.Records()) != 1 {
		t.Errorf("enriched rows = %d, want 1", len(enriched.Records()))
	}
	if dets := r.LatestDetections(); len(dets) != 1 {
		t.Errorf("LatestDetections() = %d entries, want 1", len(dets))
	}
}

func TestRunnerCaptureDeduplicatesAcrossCalls(t *testing.T) {
	enriched := &fakeEnrichedLog{}
	r := newTestRunner(&fakeProvider{frame: &fakeFrame{}}, enriched, "MH12AC1234")

	for i := 0; i < 3; i++ {
		if _, err := r.CaptureOnce(context.Background()); err != nil {
			t.Fatalf("capture %d: %v", i, err)
		}
	}
	if got := len(enriched.Records()); got != 1 {
		t.Errorf("enriched rows = %d after repeated captures, want 1", got)
	}
}

func TestRunnerResetClearsSession(t *testing.T) {
	enriched := &fakeEnrichedLog{}
	r := newTestRunner(&fakeProvider{frame: &fakeFrame{}}, enriched, "MH12AC1234")

	if _, err := r.CaptureOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Reset()

	if dets := r.LatestDetections(); len(dets) != 0 {
		t.Errorf("LatestDetections() after Reset = %d entries, want 0", len(dets))
	}

	if _, err := r.CaptureOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(enriched.Records()); got != 2 {
		t.Errorf("enriched rows = %d after reset+capture, want 2", got)
	}
}

func TestRunnerLiveLoopStopsOnCancel(t *testing.T) {
	enriched := &fakeEnrichedLog{}
	r := newTestRunner(&fakeProvider{frame: &fakeFrame{}}, enriched, "MH12AC1234")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.RunLive(ctx) }()

	// Let a few iterations happen, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunLive() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunLive did not stop after cancellation")
	}

	// The same plate was seen every iteration but enriched once.
	if got := len(enriched.Records()); got != 1 {
		t.Errorf("enriched rows = %d after live scanning, want 1", got)
	}
}

func TestRunnerSessionID(t *testing.T) {
	a := newTestRunner(&fakeProvider{}, &fakeEnrichedLog{}, "")
	b := newTestRunner(&fakeProvider{}, &fakeEnrichedLog{}, "")
	if a.SessionID() == "" || a.SessionID() == b.SessionID() {
		t.Errorf("session ids not unique: %q vs %q", a.SessionID(), b.SessionID())
	}
}
