package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-proctor-inspector/internal/landmark"
)

func TestClassifyFrame(t *testing.T) {
	tests := []struct {
		name  string
		faces []landmark.FaceLandmarks
		want  Classification
	}{
		{"no faces", nil, Classification{Class: NoFace}},
		{"two faces", []landmark.FaceLandmarks{face(0.1, 0, 1), face(0.5, 0.5, 0.5)}, Classification{Class: MultipleFaces}},
		{"centered calm", centered(), Classification{Class: SingleFace}},
		{"nose left", []landmark.FaceLandmarks{face(0.29, 0.5, 0.5)}, Classification{Class: SingleFace, HeadMovement: true}},
		{"nose right", []landmark.FaceLandmarks{face(0.71, 0.5, 0.5)}, Classification{Class: SingleFace, HeadMovement: true}},
		{"band edges inclusive", []landmark.FaceLandmarks{face(0.3, 0.5, 0.5)}, Classification{Class: SingleFace}},
		{"upper band edge", []landmark.FaceLandmarks{face(0.7, 0.5, 0.5)}, Classification{Class: SingleFace}},
		{"mouth open", []landmark.FaceLandmarks{face(0.5, 0, 0.06)}, Classification{Class: SingleFace, LipMovement: true}},
		{"lip order irrelevant", []landmark.FaceLandmarks{face(0.5, 0.06, 0)}, Classification{Class: SingleFace, LipMovement: true}},
		{"both", []landmark.FaceLandmarks{face(0.9, 0, 0.25)}, Classification{Class: SingleFace, HeadMovement: true, LipMovement: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyFrame(tt.faces)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyFrame_ShortLandmarkSet(t *testing.T) {
	_, err := ClassifyFrame([]landmark.FaceLandmarks{make(landmark.FaceLandmarks, landmark.UpperInnerLip)})
	assert.Error(t, err)

	// Short sets are irrelevant when they cannot be scored anyway
	cl, err := ClassifyFrame([]landmark.FaceLandmarks{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, MultipleFaces, cl.Class)
}

func TestCounters_Record(t *testing.T) {
	var c Counters
	c.Record(Classification{Class: NoFace})
	c.Record(Classification{Class: MultipleFaces})
	c.Record(Classification{Class: SingleFace, HeadMovement: true, LipMovement: true})
	c.Record(Classification{Class: SingleFace, LipMovement: true})
	c.Record(Classification{Class: SingleFace})

	assert.Equal(t, Counters{
		TotalFrames:   5,
		FaceMissing:   1,
		MultipleFaces: 1,
		SingleFace:    3,
		LipMovement:   2,
		HeadMovement:  1,
	}, c)
	assert.Equal(t, c.TotalFrames, c.FaceMissing+c.MultipleFaces+c.SingleFace)
}

func TestFrameClass_String(t *testing.T) {
	assert.Equal(t, "no_face", NoFace.String())
	assert.Equal(t, "multiple_faces", MultipleFaces.String())
	assert.Equal(t, "single_face", SingleFace.String())
}

func TestCheated(t *testing.T) {
	tests := []struct {
		name     string
		counters Counters
		want     bool
	}{
		{"clean", Counters{TotalFrames: 100, SingleFace: 100}, false},
		{"face missing at 10 percent", Counters{TotalFrames: 100, FaceMissing: 10}, false},
		{"face missing above 10 percent", Counters{TotalFrames: 100, FaceMissing: 11}, true},
		{"face missing 1 of 9", Counters{TotalFrames: 9, FaceMissing: 1}, true},
		{"one multi-face frame", Counters{TotalFrames: 1000, MultipleFaces: 1}, false},
		{"two multi-face frames", Counters{TotalFrames: 1000, MultipleFaces: 2}, true},
		{"lip at 15 percent", Counters{TotalFrames: 100, LipMovement: 15}, false},
		{"lip above 15 percent", Counters{TotalFrames: 100, LipMovement: 16}, true},
		{"lip 3 of 20", Counters{TotalFrames: 20, LipMovement: 3}, false},
		{"head at 20 percent", Counters{TotalFrames: 100, HeadMovement: 20}, false},
		{"head above 20 percent", Counters{TotalFrames: 100, HeadMovement: 21}, true},
		{"head 1 of 5", Counters{TotalFrames: 5, HeadMovement: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cheated(tt.counters))
		})
	}
}

func TestBuildResult(t *testing.T) {
	c := Counters{TotalFrames: 3, FaceMissing: 1, SingleFace: 2, LipMovement: 1}

	result := BuildResult(c, 2556*time.Millisecond)

	assert.True(t, result.Cheated)
	assert.Equal(t, 33.33, result.Details.FaceMissingPercentage)
	assert.Equal(t, 2.56, result.Details.AnalysisTimeSeconds)
	assert.Equal(t, 3, result.Details.TotalFrames)
	assert.Equal(t, 1, result.Details.LipMovement)
	assert.Zero(t, result.Details.AudioViolations)
}

func TestFaceMissingPercentage_NoFrames(t *testing.T) {
	assert.Zero(t, FaceMissingPercentage(Counters{}))
}
