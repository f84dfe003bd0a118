package pipeline

import (
	"log/slog"

	"platewatch/internal/anpr"
)

// StageConfig holds the detection stage tunables.
type StageConfig struct {
	// InputSize is the detection model's square input dimension.
	InputSize int
	// ConfidenceThreshold discards rows below this detector confidence.
	ConfidenceThreshold float64
	// MinAspectRatio and MaxAspectRatio bound the width/height band a
	// box must fall in to be geometrically plausible as a plate.
	MinAspectRatio float64
	MaxAspectRatio float64
	// MaxPlateLength caps canonical plate text.
	MaxPlateLength int
}

// DetectionStage turns one frame plus the detector's raw rows into zero or
// more Detections: geometric filtering, crop, OCR, normalization. A failure
// on one row never aborts the remaining rows.
type DetectionStage struct {
	detector anpr.Detector
	ocr      anpr.Recognizer
	cfg      StageConfig
	log      *slog.Logger
}

// NewDetectionStage builds the stage around the detection and OCR
// collaborators.
func NewDetectionStage(detector anpr.Detector, ocr anpr.Recognizer, cfg StageConfig, log *slog.Logger) *DetectionStage {
	return &DetectionStage{detector: detector, ocr: ocr, cfg: cfg, log: log}
}

// ProcessFrame runs the detector on the frame and filters every raw row
// down to plate-like Detections.
func (st *DetectionStage) ProcessFrame(f anpr.Frame) []anpr.Detection {
	rows, err := st.detector.Detect(f)
	if err != nil {
		st.log.Warn("detector failed on frame", "error", err)
		return nil
	}

	var out []anpr.Detection
	for _, row := range rows {
		if det, ok := st.processRow(f, row); ok {
			out = append(out, det)
		}
	}
	return out
}

// processRow applies the per-row algorithm. ok is false for rows rejected
// by any filter; a panic inside collaborator calls is contained here and
// treated as "no detection for this row".
func (st *DetectionStage) processRow(f anpr.Frame, row anpr.RawDetection) (det anpr.Detection, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			st.log.Error("panic while processing detection row", "panic", r)
			ok = false
		}
	}()

	if row.Confidence < st.cfg.ConfidenceThreshold {
		return det, false
	}

	box, valid := projectBox(row, f.Width(), f.Height(), st.cfg.InputSize)
	if !valid {
		st.log.Debug("skipping invalid ROI", "row", row)
		return det, false
	}

	if ar := box.AspectRatio(); ar < st.cfg.MinAspectRatio || ar > st.cfg.MaxAspectRatio {
		return det, false
	}

	png, err := f.CropPNG(box)
	if err != nil {
		st.log.Debug("skipping empty crop", "box", box, "error", err)
		return det, false
	}

	raw, err := st.ocr.Recognize(png)
	if err != nil {
		// OCR failures are expected and recoverable; the detection
		// survives with an empty reading.
		st.log.Debug("ocr failed on crop", "box", box, "error", err)
		raw = ""
	}

	return anpr.Detection{
		Box:        box,
		Confidence: row.Confidence,
		Text:       anpr.Normalize(raw, st.cfg.MaxPlateLength),
	}, true
}

// projectBox converts a center box in model coordinates to a corner box in
// frame coordinates, clamped to frame bounds. valid is false when the
// clamped box has no area.
func projectBox(row anpr.RawDetection, frameW, frameH, inputSize int) (anpr.Box, bool) {
	xScale := float64(frameW) / float64(inputSize)
	yScale := float64(frameH) / float64(inputSize)

	x1 := int((row.X - row.W/2) * xScale)
	y1 := int((row.Y - row.H/2) * yScale)
	x2 := int((row.X + row.W/2) * xScale)
	y2 := int((row.Y + row.H/2) * yScale)

	b := anpr.Box{
		X1: max(0, x1),
		Y1: max(0, y1),
		X2: min(frameW-1, x2),
		Y2: min(frameH-1, y2),
	}
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return anpr.Box{}, false
	}
	return b, true
}
