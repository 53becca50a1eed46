package analyzer

import (
	"math"
	"time"

	"go-proctor-inspector/pkg/models"
)

// Verdict thresholds. Face-missing is a percentage of all frames, multiple faces is a raw
// frame count, and lip and head movement are fractions of all frames.
const (
	MaxFaceMissingPercent  = 10
	MaxMultipleFaceFrames  = 1
	MaxLipMovementPercent  = 15
	MaxHeadMovementPercent = 20
)

// Cheated reports whether any of the four rules fires. Comparisons are done on integers,
// scaled by 100, so boundary cases do not depend on float rounding.
func Cheated(c Counters) bool {
	return c.FaceMissing*100 > c.TotalFrames*MaxFaceMissingPercent ||
		c.MultipleFaces > MaxMultipleFaceFrames ||
		c.LipMovement*100 > c.TotalFrames*MaxLipMovementPercent ||
		c.HeadMovement*100 > c.TotalFrames*MaxHeadMovementPercent
}

// FaceMissingPercentage is the share of frames without a face, in percent
func FaceMissingPercentage(c Counters) float64 {
	if c.TotalFrames == 0 {
		return 0
	}
	return float64(c.FaceMissing) * 100 / float64(c.TotalFrames)
}

// BuildResult snapshots the counters into the response model
func BuildResult(c Counters, elapsed time.Duration) *models.AnalysisResult {
	return &models.AnalysisResult{
		Cheated: Cheated(c),
		Details: models.AnalysisDetails{
			FaceMissing:           c.FaceMissing,
			FaceMissingPercentage: round2(FaceMissingPercentage(c)),
			MultipleFaces:         c.MultipleFaces,
			LipMovement:           c.LipMovement,
			HeadMovement:          c.HeadMovement,
			AudioViolations:       c.AudioViolations,
			TotalFrames:           c.TotalFrames,
			AnalysisTimeSeconds:   round2(elapsed.Seconds()),
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
