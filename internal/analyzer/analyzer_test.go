package analyzer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-proctor-inspector/internal/errors"
	"go-proctor-inspector/internal/landmark"
	"go-proctor-inspector/internal/observer"
	"go-proctor-inspector/internal/video"
)

// face builds a single landmark set with the classifier's points set
func face(noseX, upperLipY, lowerLipY float64) landmark.FaceLandmarks {
	f := make(landmark.FaceLandmarks, landmark.MinPoints)
	for i := range f {
		f[i] = landmark.Point{X: 0.5, Y: 0.5}
	}
	f[landmark.NoseTip].X = noseX
	f[landmark.UpperInnerLip].Y = upperLipY
	f[landmark.LowerInnerLip].Y = lowerLipY
	return f
}

// centered is a calm single face: nose in the band, mouth closed
func centered() []landmark.FaceLandmarks {
	return []landmark.FaceLandmarks{face(0.5, 0.5, 0.5)}
}

func repeat(n int, faces []landmark.FaceLandmarks) [][]landmark.FaceLandmarks {
	script := make([][]landmark.FaceLandmarks, n)
	for i := range script {
		script[i] = faces
	}
	return script
}

type fakeStream struct {
	frames int
	failAt int
	read   int
	closed bool
}

func (s *fakeStream) Next() (video.Frame, error) {
	if s.failAt > 0 && s.read+1 == s.failAt {
		return video.Frame{}, errors.New("corrupt packet")
	}
	if s.read >= s.frames {
		return video.Frame{}, io.EOF
	}
	s.read++
	return video.Frame{
		Index:  s.read,
		Width:  1,
		Height: 1,
		Format: video.PixelFormatBGR24,
		Pix:    []byte{10, 20, 30},
	}, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeDecoder struct {
	frames  int
	failAt  int
	openErr error
	streams []*fakeStream
}

func (d *fakeDecoder) Open(ctx context.Context, path string) (video.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{frames: d.frames, failAt: d.failAt}
	d.streams = append(d.streams, s)
	return s, nil
}

type fakeDetector struct {
	script   [][]landmark.FaceLandmarks
	failAt   int
	closed   bool
	rgbSeen  bool
	nonRGB   bool
	detected int
}

func (d *fakeDetector) Detect(ctx context.Context, frame video.Frame) ([]landmark.FaceLandmarks, error) {
	if frame.Format != video.PixelFormatRGB24 {
		d.nonRGB = true
	} else if frame.Pix[0] == 30 && frame.Pix[2] == 10 {
		d.rgbSeen = true
	}
	if d.failAt > 0 && frame.Index == d.failAt {
		return nil, errors.New("model crashed")
	}
	d.detected++
	return d.script[frame.Index-1], nil
}

func (d *fakeDetector) Close() error {
	d.closed = true
	return nil
}

type fakeFactory struct {
	script    [][]landmark.FaceLandmarks
	failAt    int
	newErr    error
	detectors []*fakeDetector
}

func (f *fakeFactory) NewDetector(ctx context.Context) (landmark.Detector, error) {
	if f.newErr != nil {
		return nil, f.newErr
	}
	d := &fakeDetector{script: f.script, failAt: f.failAt}
	f.detectors = append(f.detectors, d)
	return d, nil
}

func newTestAnalyzer(script [][]landmark.FaceLandmarks) (*Analyzer, *fakeDecoder, *fakeFactory) {
	logger, _ := test.NewNullLogger()
	dec := &fakeDecoder{frames: len(script)}
	fac := &fakeFactory{script: script}
	return New(dec, fac, WithLogger(logger)), dec, fac
}

func TestAnalyze_EmptyVideo(t *testing.T) {
	a, dec, fac := newTestAnalyzer(nil)

	result, err := a.Analyze(context.Background(), "/tmp/empty.webm")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEmptyVideo))
	assert.Equal(t, apperrors.MsgEmptyVideo, apperrors.GetDetail(err))
	assert.True(t, dec.streams[0].closed)
	assert.True(t, fac.detectors[0].closed)
}

func TestAnalyze_PartitionInvariant(t *testing.T) {
	var script [][]landmark.FaceLandmarks
	for i := 0; i < 37; i++ {
		switch i % 4 {
		case 0:
			script = append(script, nil)
		case 1:
			script = append(script, []landmark.FaceLandmarks{face(0.5, 0.5, 0.5), face(0.2, 0.5, 0.5)})
		case 2:
			script = append(script, []landmark.FaceLandmarks{face(0.9, 0.4, 0.5)})
		default:
			script = append(script, centered())
		}
	}
	a, _, _ := newTestAnalyzer(script)

	result, err := a.Analyze(context.Background(), "mixed.mp4")
	require.NoError(t, err)

	d := result.Details
	singleFace := 0
	for _, faces := range script {
		if len(faces) == 1 {
			singleFace++
		}
	}
	assert.Equal(t, 37, d.TotalFrames)
	assert.Equal(t, d.TotalFrames, d.FaceMissing+d.MultipleFaces+singleFace)
	assert.LessOrEqual(t, d.HeadMovement, singleFace)
	assert.LessOrEqual(t, d.LipMovement, singleFace)
}

func TestAnalyze_FaceMissingOverTenPercent(t *testing.T) {
	script := repeat(100, centered())
	for i := 0; i < 11; i++ {
		script[i*9] = nil
	}
	a, _, _ := newTestAnalyzer(script)

	result, err := a.Analyze(context.Background(), "missing.webm")
	require.NoError(t, err)

	assert.True(t, result.Cheated)
	assert.Equal(t, 11, result.Details.FaceMissing)
	assert.Equal(t, 11.0, result.Details.FaceMissingPercentage)
	assert.Zero(t, result.Details.MultipleFaces)
	assert.Zero(t, result.Details.LipMovement)
	assert.Zero(t, result.Details.HeadMovement)
}

func TestAnalyze_LipGapBoundaryIsStrict(t *testing.T) {
	a, _, _ := newTestAnalyzer(repeat(100, []landmark.FaceLandmarks{face(0.5, 0, 0.05)}))

	result, err := a.Analyze(context.Background(), "lips.webm")
	require.NoError(t, err)

	assert.Zero(t, result.Details.LipMovement)
	assert.False(t, result.Cheated)
}

func TestAnalyze_LipGapAboveThreshold(t *testing.T) {
	a, _, _ := newTestAnalyzer(repeat(100, []landmark.FaceLandmarks{face(0.5, 0, 0.051)}))

	result, err := a.Analyze(context.Background(), "lips.webm")
	require.NoError(t, err)

	assert.Equal(t, 100, result.Details.LipMovement)
	assert.True(t, result.Cheated)
}

func TestAnalyze_TwoMultiFaceFrames(t *testing.T) {
	script := repeat(50, centered())
	two := []landmark.FaceLandmarks{face(0.5, 0.5, 0.5), face(0.5, 0.5, 0.5)}
	script[7] = two
	script[42] = two
	a, _, _ := newTestAnalyzer(script)

	result, err := a.Analyze(context.Background(), "pair.webm")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Details.MultipleFaces)
	assert.True(t, result.Cheated)
}

func TestAnalyze_SingleMultiFaceFrameIsTolerated(t *testing.T) {
	script := repeat(50, centered())
	script[10] = []landmark.FaceLandmarks{face(0.5, 0.5, 0.5), face(0.5, 0.5, 0.5)}
	a, _, _ := newTestAnalyzer(script)

	result, err := a.Analyze(context.Background(), "one.webm")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Details.MultipleFaces)
	assert.False(t, result.Cheated)
}

func TestAnalyze_AudioViolationsAlwaysZero(t *testing.T) {
	scripts := [][][]landmark.FaceLandmarks{
		repeat(5, nil),
		repeat(5, centered()),
		repeat(5, []landmark.FaceLandmarks{face(0.1, 0, 0.2)}),
	}
	for _, script := range scripts {
		a, _, _ := newTestAnalyzer(script)
		result, err := a.Analyze(context.Background(), "audio.webm")
		require.NoError(t, err)
		assert.Zero(t, result.Details.AudioViolations)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	script := repeat(60, centered())
	script[3] = nil
	script[20] = []landmark.FaceLandmarks{face(0.8, 0.5, 0.6)}
	a, _, _ := newTestAnalyzer(script)

	first, err := a.Analyze(context.Background(), "same.webm")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), "same.webm")
	require.NoError(t, err)

	first.Details.AnalysisTimeSeconds = 0
	second.Details.AnalysisTimeSeconds = 0
	assert.Equal(t, first, second)
}

func TestAnalyze_ConvertsFramesToRGB(t *testing.T) {
	a, _, fac := newTestAnalyzer(repeat(3, centered()))

	_, err := a.Analyze(context.Background(), "rgb.webm")
	require.NoError(t, err)

	assert.False(t, fac.detectors[0].nonRGB)
	assert.True(t, fac.detectors[0].rgbSeen)
}

func TestAnalyze_AnalysisTime(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(1234 * time.Millisecond)}
	clock := func() time.Time {
		now := ticks[0]
		ticks = ticks[1:]
		return now
	}

	logger, _ := test.NewNullLogger()
	a := New(&fakeDecoder{frames: 2}, &fakeFactory{script: repeat(2, centered())},
		WithLogger(logger), WithClock(clock))

	result, err := a.Analyze(context.Background(), "timed.webm")
	require.NoError(t, err)
	assert.Equal(t, 1.23, result.Details.AnalysisTimeSeconds)
}

func TestAnalyze_OpenFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fac := &fakeFactory{}
	a := New(&fakeDecoder{openErr: video.ErrNotOpened}, fac, WithLogger(logger))

	result, err := a.Analyze(context.Background(), "broken.webm")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeVideoOpen))
	assert.ErrorIs(t, err, video.ErrNotOpened)
	assert.Empty(t, fac.detectors, "no detector should start for an unopenable video")
}

func TestAnalyze_DetectorStartFailureReleasesStream(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dec := &fakeDecoder{frames: 3}
	a := New(dec, &fakeFactory{newErr: errors.New("python3 not found")}, WithLogger(logger))

	result, err := a.Analyze(context.Background(), "x.webm")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.True(t, dec.streams[0].closed)
}

func TestAnalyze_DecodeFailureReleasesResources(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dec := &fakeDecoder{frames: 10, failAt: 4}
	fac := &fakeFactory{script: repeat(10, centered())}
	a := New(dec, fac, WithLogger(logger))

	result, err := a.Analyze(context.Background(), "x.webm")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDecode))
	assert.Contains(t, apperrors.GetDetail(err), "frame 4")
	assert.True(t, dec.streams[0].closed)
	assert.True(t, fac.detectors[0].closed)
}

func TestAnalyze_DetectionFailureReleasesResources(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dec := &fakeDecoder{frames: 10}
	fac := &fakeFactory{script: repeat(10, centered()), failAt: 6}
	a := New(dec, fac, WithLogger(logger))

	result, err := a.Analyze(context.Background(), "x.webm")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDetection))
	assert.True(t, dec.streams[0].closed)
	assert.True(t, fac.detectors[0].closed)
	assert.Equal(t, 5, fac.detectors[0].detected)
}

func TestAnalyze_MalformedFaceIsDetectionFailure(t *testing.T) {
	script := repeat(3, centered())
	script[1] = []landmark.FaceLandmarks{make(landmark.FaceLandmarks, 2)}
	a, _, _ := newTestAnalyzer(script)

	_, err := a.Analyze(context.Background(), "short.webm")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDetection))
}

func TestAnalyze_CanceledContext(t *testing.T) {
	a, dec, fac := newTestAnalyzer(repeat(5, centered()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, "x.webm")

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, dec.streams[0].closed)
	assert.True(t, fac.detectors[0].closed)
}

type eventRecorder struct {
	events []observer.AnalysisEvent
}

func (r *eventRecorder) OnEvent(ctx context.Context, event observer.AnalysisEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) GetObserverName() string { return "recorder" }

func TestAnalyze_PublishesEvents(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := observer.NewEventPublisher(logger)
	rec := &eventRecorder{}
	pub.Subscribe(rec)

	script := [][]landmark.FaceLandmarks{nil, centered(), {face(0.1, 0.5, 0.5)}}
	a := New(&fakeDecoder{frames: 3}, &fakeFactory{script: script}, WithLogger(logger), WithPublisher(pub))

	result, err := a.Analyze(context.Background(), "/uploads/abc.webm")
	require.NoError(t, err)

	require.Len(t, rec.events, 5)
	assert.Equal(t, observer.AnalysisStarted, rec.events[0].EventType)
	assert.Equal(t, "abc.webm", rec.events[0].Source)
	assert.Equal(t, observer.ClassNoFace, rec.events[1].Frame.Class)
	assert.Equal(t, observer.ClassSingleFace, rec.events[2].Frame.Class)
	assert.True(t, rec.events[3].Frame.HeadMovement)
	assert.Equal(t, observer.AnalysisCompleted, rec.events[4].EventType)
	assert.Same(t, result, rec.events[4].Result)
}

func TestAnalyze_PublishesFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := observer.NewEventPublisher(logger)
	rec := &eventRecorder{}
	pub.Subscribe(rec)

	a := New(&fakeDecoder{}, &fakeFactory{}, WithLogger(logger), WithPublisher(pub))
	_, err := a.Analyze(context.Background(), "empty.webm")
	require.Error(t, err)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, observer.AnalysisFailed, last.EventType)
	assert.Equal(t, true, last.Metadata["started"])
}
