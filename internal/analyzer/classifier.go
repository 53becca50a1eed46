package analyzer

import (
	"fmt"
	"math"

	"go-proctor-inspector/internal/landmark"
	"go-proctor-inspector/internal/observer"
)

// Fixed per-frame thresholds on normalized landmark coordinates
const (
	// HeadBandMin and HeadBandMax bound the centered band the nose tip must stay in
	HeadBandMin = 0.3
	HeadBandMax = 0.7
	// LipGapThreshold is the inner-lip vertical gap above which the mouth counts as open
	LipGapThreshold = 0.05
)

// FrameClass is the mutually exclusive category of a frame
type FrameClass int

const (
	NoFace FrameClass = iota
	MultipleFaces
	SingleFace
)

func (c FrameClass) String() string {
	switch c {
	case NoFace:
		return observer.ClassNoFace
	case MultipleFaces:
		return observer.ClassMultipleFaces
	default:
		return observer.ClassSingleFace
	}
}

// Classification is the outcome for one frame. HeadMovement and LipMovement are only
// ever set on single-face frames and are independent of each other.
type Classification struct {
	Class        FrameClass
	HeadMovement bool
	LipMovement  bool
}

// ClassifyFrame sorts a frame by how many faces were detected and scores a lone face
func ClassifyFrame(faces []landmark.FaceLandmarks) (Classification, error) {
	switch {
	case len(faces) == 0:
		return Classification{Class: NoFace}, nil
	case len(faces) > 1:
		return Classification{Class: MultipleFaces}, nil
	}

	face := faces[0]
	nose, ok := face.At(landmark.NoseTip)
	if !ok {
		return Classification{}, fmt.Errorf("face has %d landmarks, missing nose tip", len(face))
	}
	upper, ok := face.At(landmark.UpperInnerLip)
	if !ok {
		return Classification{}, fmt.Errorf("face has %d landmarks, missing upper lip", len(face))
	}
	lower, ok := face.At(landmark.LowerInnerLip)
	if !ok {
		return Classification{}, fmt.Errorf("face has %d landmarks, missing lower lip", len(face))
	}

	return Classification{
		Class:        SingleFace,
		HeadMovement: nose.X < HeadBandMin || nose.X > HeadBandMax,
		LipMovement:  math.Abs(upper.Y-lower.Y) > LipGapThreshold,
	}, nil
}

// Counters accumulate classifications over one pass.
// FaceMissing + MultipleFaces + SingleFace == TotalFrames at all times.
type Counters struct {
	TotalFrames   int
	FaceMissing   int
	MultipleFaces int
	SingleFace    int
	LipMovement   int
	HeadMovement  int
	// AudioViolations has no producer and stays zero
	AudioViolations int
}

// Record counts one classified frame
func (c *Counters) Record(cl Classification) {
	c.TotalFrames++
	switch cl.Class {
	case NoFace:
		c.FaceMissing++
	case MultipleFaces:
		c.MultipleFaces++
	case SingleFace:
		c.SingleFace++
		if cl.HeadMovement {
			c.HeadMovement++
		}
		if cl.LipMovement {
			c.LipMovement++
		}
	}
}
