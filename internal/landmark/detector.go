// Package landmark talks to the external face-landmark model.
//
// The model is MediaPipe FaceMesh: every detected face is a fixed-topology list of
// normalized points where x and y are relative to the frame width and height.
package landmark

import (
	"context"

	"go-proctor-inspector/internal/video"
)

// FaceMesh topology indices used by the classifier
const (
	NoseTip       = 1
	UpperInnerLip = 13
	LowerInnerLip = 14

	// MinPoints is the smallest landmark set that covers every index above
	MinPoints = LowerInnerLip + 1
)

// Point is a normalized landmark
type Point struct {
	X float64
	Y float64
	Z float64
}

// FaceLandmarks is one detected face in model topology order
type FaceLandmarks []Point

// At returns the landmark at index i
func (f FaceLandmarks) At(i int) (Point, bool) {
	if i < 0 || i >= len(f) {
		return Point{}, false
	}
	return f[i], true
}

// Options configures the landmark model
type Options struct {
	MinDetectionConfidence float64
	MinTrackingConfidence  float64
	MaxFaces               int
}

// DefaultOptions returns the model settings used for proctoring.
// MaxFaces must be above one or multi-face frames can never be observed.
func DefaultOptions() Options {
	return Options{
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		MaxFaces:               4,
	}
}

// Detector runs landmark detection on RGB frames.
// A Detector holds model state across frames and must not be shared between analyses.
type Detector interface {
	Detect(ctx context.Context, frame video.Frame) ([]FaceLandmarks, error)
	Close() error
}

// Factory creates one Detector per analysis
type Factory interface {
	NewDetector(ctx context.Context) (Detector, error)
}

// FactoryFunc adapts a function to Factory
type FactoryFunc func(ctx context.Context) (Detector, error)

// NewDetector calls f(ctx)
func (f FactoryFunc) NewDetector(ctx context.Context) (Detector, error) {
	return f(ctx)
}
