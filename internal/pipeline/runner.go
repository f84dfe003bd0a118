package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"platewatch/internal/anpr"
)

// ErrBusy is returned when a one-shot capture is requested while another is
// still in flight.
var ErrBusy = errors.New("capture already in progress")

// FrameProvider is the read side of the shared frame slot.
type FrameProvider interface {
	Latest() (anpr.Frame, bool)
}

// RunnerConfig holds the runner tunables.
type RunnerConfig struct {
	// QuantizationFactor derives stabilization bucket keys from boxes.
	QuantizationFactor int
	// LiveInterval is the cadence of the continuous scanning loop.
	LiveInterval time.Duration
	// SnapshotDir receives a PNG of every one-shot capture; empty
	// disables snapshots.
	SnapshotDir string
}

// Runner is the concurrency glue binding the shared frame slot, the
// detection stage, the stabilizer and the orchestrator. The one-shot and
// live paths run on their own goroutines and share all session state.
type Runner struct {
	source FrameProvider
	stage  *DetectionStage
	stab   *anpr.Stabilizer
	orch   *Orchestrator
	cfg    RunnerConfig
	status anpr.StatusSink
	log    *slog.Logger

	sessionID string
	inFlight  atomic.Bool

	mu             sync.Mutex
	lastDetections []anpr.Detection
}

// NewRunner assembles a runner. Every runner carries its own session id
// for log correlation.
func NewRunner(
	source FrameProvider,
	stage *DetectionStage,
	stab *anpr.Stabilizer,
	orch *Orchestrator,
	cfg RunnerConfig,
	status anpr.StatusSink,
	log *slog.Logger,
) *Runner {
	if cfg.QuantizationFactor <= 0 {
		cfg.QuantizationFactor = 20
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 200 * time.Millisecond
	}
	sessionID := uuid.NewString()
	return &Runner{
		source:    source,
		stage:     stage,
		stab:      stab,
		orch:      orch,
		cfg:       cfg,
		status:    status,
		log:       log.With("session_id", sessionID),
		sessionID: sessionID,
	}
}

// SessionID returns the id correlating this runner's log events.
func (r *Runner) SessionID() string { return r.sessionID }

// CaptureOnce snapshots the current frame and runs the full
// detect-stabilize-enrich path over it. Re-entry while a capture is in
// flight is refused with ErrBusy; this is a usability guard against
// accidental double-processing, not a correctness requirement.
func (r *Runner) CaptureOnce(ctx context.Context) (valid int, err error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.status.Post("Capture already in progress.")
		return 0, ErrBusy
	}
	defer r.inFlight.Store(false)

	frame, ok := r.source.Latest()
	if !ok {
		r.status.Post("Error: no frame available to capture.")
		r.log.Warn("capture attempted with no frame available")
		return 0, anpr.ErrNoFrame
	}
	defer frame.Close()

	r.status.Post("Processing...")
	r.saveSnapshot(frame)

	detected, valid := r.processFrame(ctx, frame)
	r.status.Post(fmt.Sprintf("Processing complete: detected %d plates, validated %d.", detected, valid))
	return valid, nil
}

// RunLive scans the shared frame slot at a fixed cadence until the context
// is cancelled. It shares the stage, stabilizer and orchestrator with the
// one-shot path; dedup correctness holds across both.
func (r *Runner) RunLive(ctx context.Context) error {
	r.log.Info("live scanning started", "interval", r.cfg.LiveInterval)
	ticker := time.NewTicker(r.cfg.LiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("live scanning stopped")
			return ctx.Err()
		case <-ticker.C:
			frame, ok := r.source.Latest()
			if !ok {
				continue
			}
			r.processFrame(ctx, frame)
			frame.Close()
		}
	}
}

// processFrame runs one frame through detection, stabilization and
// enrichment, and caches the detections for the presentation layer.
func (r *Runner) processFrame(ctx context.Context, frame anpr.Frame) (detected, valid int) {
	detections := r.stage.ProcessFrame(frame)

	r.mu.Lock()
	r.lastDetections = detections
	r.mu.Unlock()

	for _, det := range detections {
		bucket := det.Box.BucketID(r.cfg.QuantizationFactor)
		r.stab.Observe(bucket, det.Text)
		stable := r.stab.StableText(bucket)
		if r.orch.Submit(ctx, stable) {
			valid++
		}
	}
	return len(detections), valid
}

// LatestDetections returns a copy of the most recent frame's detections,
// for rendering overlays.
func (r *Runner) LatestDetections() []anpr.Detection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]anpr.Detection, len(r.lastDetections))
	copy(out, r.lastDetections)
	return out
}

// Reset clears the session: dedup state and the cached detections. The
// frame source and the durable logs are unaffected.
func (r *Runner) Reset() {
	r.orch.Reset()
	r.mu.Lock()
	r.lastDetections = nil
	r.mu.Unlock()
	r.status.Post("Session reset.")
}

func (r *Runner) saveSnapshot(frame anpr.Frame) {
	if r.cfg.SnapshotDir == "" {
		return
	}
	saver, ok := frame.(anpr.SnapshotSaver)
	if !ok {
		return
	}
	name := fmt.Sprintf("capture_%s_%s.png",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(r.cfg.SnapshotDir, name)
	if err := saver.SavePNG(path); err != nil {
		r.log.Warn("snapshot save failed", "path", path, "error", err)
		return
	}
	r.log.Debug("saved capture snapshot", "path", path)
}
