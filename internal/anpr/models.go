// Package anpr holds the domain model of the plate-recognition pipeline:
// detections, vehicle records and the collaborator interfaces that the
// pipeline stages are wired against.
package anpr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by a LookupClient when the registry has no
	// record for a plate.
	ErrNotFound = errors.New("vehicle not found")

	// ErrNoFrame is returned when a capture is requested before the source
	// has published any frame.
	ErrNoFrame = errors.New("no frame available")
)

// RawDetection is one row of detector output in the model's input
// coordinate space (center box plus confidence).
type RawDetection struct {
	X          float64
	Y          float64
	W          float64
	H          float64
	Confidence float64
}

// Box is a corner-form bounding box in frame coordinates.
// Invariant: X1 < X2 and Y1 < Y2.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// AspectRatio returns width/height.
func (b Box) AspectRatio() float64 {
	return float64(b.Width()) / float64(b.Height())
}

// BucketID derives the spatial bucket key for the box by quantizing each
// coordinate with the given factor. Boxes of the same physical region jitter
// by a few pixels between frames but land in the same bucket.
func (b Box) BucketID(factor int) string {
	return fmt.Sprintf("%d_%d_%d_%d", b.X1/factor, b.Y1/factor, b.X2/factor, b.Y2/factor)
}

// Detection is one plate-like region that survived geometric filtering,
// with its normalized OCR reading. Text may be empty when OCR failed.
type Detection struct {
	Box        Box
	Confidence float64
	Text       string
}

// PlateCandidate is a canonical plate text together with its grammar verdict.
type PlateCandidate struct {
	Text  string
	Valid bool
}

// VehicleRecord is the durable, enriched record persisted once per unique
// valid plate.
type VehicleRecord struct {
	PlateText        string
	OwnerName        string
	VehicleModel     string
	RegistrationDate string
	Timestamp        time.Time
}

// NewNotFoundRecord builds the placeholder record persisted when the
// registry lookup yields no data. The plate is still marked processed so
// failing lookups are not retried every frame.
func NewNotFoundRecord(plate string) VehicleRecord {
	return VehicleRecord{
		PlateText:        plate,
		OwnerName:        "Not Found",
		VehicleModel:     "Not Found",
		RegistrationDate: "Not Found",
		Timestamp:        time.Now(),
	}
}

// Frame is an immutable captured video frame. The holder of a Frame owns it
// exclusively and must Close it when done.
type Frame interface {
	Width() int
	Height() int
	Channels() int

	// CropPNG extracts the region inside the box, applies the OCR
	// preprocessing chain and returns the result as PNG bytes.
	CropPNG(b Box) ([]byte, error)

	// Clone returns an independent copy the caller owns.
	Clone() Frame

	Close()
}

// SnapshotSaver is optionally implemented by frames that can persist
// themselves to disk.
type SnapshotSaver interface {
	SavePNG(path string) error
}

// Detector is the object-detection collaborator: one frame in, raw
// candidate rows out, in the model's input coordinate space.
type Detector interface {
	Detect(f Frame) ([]RawDetection, error)
}

// Recognizer is the OCR collaborator. Implementations may fail on any
// individual crop; callers treat a failure as an empty reading.
type Recognizer interface {
	Recognize(png []byte) (string, error)
}

// LookupClient resolves a plate to its registry record. Implementations
// must be safe for concurrent calls with different plates and return
// ErrNotFound when the registry has no data.
type LookupClient interface {
	Lookup(ctx context.Context, plate string) (*VehicleRecord, error)
}

// BasicLog is the append-only plate-only log awaiting enrichment.
type BasicLog interface {
	Append(ts time.Time, plate string) error
	ReadAll() ([]string, error)
	Delete() error
}

// EnrichedLog is the append-only log of fully enriched vehicle records.
type EnrichedLog interface {
	Append(rec VehicleRecord) error
}

// StatusSink receives short human-readable progress messages for whatever
// presentation layer is attached.
type StatusSink interface {
	Post(msg string)
}
