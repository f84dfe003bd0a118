// Package vision provides the OpenCV and Tesseract backed implementations
// of the pipeline's frame, detector and OCR collaborators.
package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"platewatch/internal/anpr"
)

// Frame wraps a gocv.Mat and owns its lifetime. The zero value is not
// usable; construct with NewFrame.
type Frame struct {
	mat gocv.Mat
}

// NewFrame takes ownership of the given Mat.
func NewFrame(mat gocv.Mat) *Frame {
	return &Frame{mat: mat}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.mat.Cols() }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.mat.Rows() }

// Channels returns the pixel channel count.
func (f *Frame) Channels() int { return f.mat.Channels() }

// Clone returns an independent deep copy.
func (f *Frame) Clone() anpr.Frame {
	return &Frame{mat: f.mat.Clone()}
}

// Close releases the underlying Mat.
func (f *Frame) Close() {
	if !f.mat.Empty() {
		f.mat.Close()
	}
}

// CropPNG extracts the boxed region and runs the OCR preprocessing chain:
// grayscale, Otsu binary threshold, 2x cubic upscale. The result is
// returned PNG-encoded for the recognizer.
func (f *Frame) CropPNG(b anpr.Box) ([]byte, error) {
	rect := image.Rect(b.X1, b.Y1, b.X2, b.Y2)
	roi := f.mat.Region(rect)
	defer roi.Close()
	if roi.Empty() {
		return nil, fmt.Errorf("empty crop for box %+v", b)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(roi, &gray, gocv.ColorBGRToGray)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(thresh, &resized, image.Point{}, 2, 2, gocv.InterpolationCubic)

	buf, err := gocv.IMEncode(".png", resized)
	if err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// SavePNG writes the frame to disk.
func (f *Frame) SavePNG(path string) error {
	if ok := gocv.IMWrite(path, f.mat); !ok {
		return fmt.Errorf("write snapshot %s", path)
	}
	return nil
}
