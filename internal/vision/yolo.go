package vision

import (
	"fmt"
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"platewatch/internal/anpr"
)

// YOLODetector runs a YOLOv8 ONNX plate-detection model through OpenCV's
// DNN module. The model outputs a [1, 5, N] tensor where each column is
// [x, y, w, h, confidence] in the model's input coordinate space.
type YOLODetector struct {
	net       gocv.Net
	inputSize int
	log       *slog.Logger
}

// NewYOLODetector loads the ONNX model. A load failure is fatal to startup.
func NewYOLODetector(modelPath string, inputSize int, log *slog.Logger) (*YOLODetector, error) {
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load detection model from %s", modelPath)
	}
	log.Info("detection model loaded", "path", modelPath, "input_size", inputSize)
	return &YOLODetector{net: net, inputSize: inputSize, log: log}, nil
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	return d.net.Close()
}

// Detect runs one forward pass and returns every raw candidate row. No
// confidence or geometry filtering happens here; that is the detection
// stage's job.
func (d *YOLODetector) Detect(f anpr.Frame) ([]anpr.RawDetection, error) {
	vf, ok := f.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", f)
	}

	blob := gocv.BlobFromImage(vf.mat, 1.0/255.0,
		image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// [1, 5, N] -> [5, N] -> transpose to one detection per row.
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected model output shape %v", dims)
	}
	table := output.Reshape(1, dims[1])
	defer table.Close()
	rows := table.T()
	defer rows.Close()

	out := make([]anpr.RawDetection, 0, rows.Rows())
	for i := 0; i < rows.Rows(); i++ {
		out = append(out, anpr.RawDetection{
			X:          float64(rows.GetFloatAt(i, 0)),
			Y:          float64(rows.GetFloatAt(i, 1)),
			W:          float64(rows.GetFloatAt(i, 2)),
			H:          float64(rows.GetFloatAt(i, 3)),
			Confidence: float64(rows.GetFloatAt(i, 4)),
		})
	}
	return out, nil
}
