// Package analyzer classifies every frame of a recording and turns the counts into a verdict.
package analyzer

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-proctor-inspector/internal/errors"
	"go-proctor-inspector/internal/landmark"
	"go-proctor-inspector/internal/observer"
	"go-proctor-inspector/internal/video"
	"go-proctor-inspector/pkg/models"
)

// Analyzer runs one linear decode, detect and classify pass per call.
// It holds no per-call state, so a single Analyzer may serve concurrent calls;
// each call opens its own stream and detector.
type Analyzer struct {
	decoder   video.Decoder
	detectors landmark.Factory
	publisher *observer.EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

// New creates an analyzer over the given decoder and detector factory
func New(decoder video.Decoder, detectors landmark.Factory, opts ...Option) *Analyzer {
	a := &Analyzer{
		decoder:   decoder,
		detectors: detectors,
		logger:    logrus.StandardLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze processes the video at path start to finish.
// No partial result is ever returned: any failure yields a nil result and an *AppError.
func (a *Analyzer) Analyze(ctx context.Context, path string) (result *models.AnalysisResult, err error) {
	source := filepath.Base(path)
	started := false
	defer func() {
		if err != nil {
			a.publish(ctx, observer.AnalysisEvent{
				EventType:    observer.AnalysisFailed,
				Source:       source,
				ErrorMessage: err.Error(),
				Metadata:     map[string]interface{}{"started": started},
			})
		}
	}()

	stream, err := a.decoder.Open(ctx, path)
	if err != nil {
		return nil, apperrors.NewVideoOpenError(err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			a.logger.WithError(cerr).WithField("source", source).Warn("Failed to release video decoder")
		}
	}()

	detector, err := a.detectors.NewDetector(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to start landmark detector", err)
	}
	defer func() {
		if cerr := detector.Close(); cerr != nil {
			a.logger.WithError(cerr).WithField("source", source).Warn("Failed to release landmark detector")
		}
	}()

	started = true
	a.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, Source: source})

	start := a.now()
	counters, err := a.run(ctx, stream, detector, source)
	if err != nil {
		return nil, err
	}
	elapsed := a.now().Sub(start)

	if counters.TotalFrames == 0 {
		return nil, apperrors.NewEmptyVideoError()
	}

	result = BuildResult(counters, elapsed)
	a.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
		Result:         result,
	})
	return result, nil
}

// run is the decode and detect loop. It stops cleanly at io.EOF.
func (a *Analyzer) run(ctx context.Context, stream video.Stream, detector landmark.Detector, source string) (Counters, error) {
	var counters Counters
	for {
		if err := ctx.Err(); err != nil {
			return counters, apperrors.NewInternalError("Analysis canceled", err)
		}

		frame, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return counters, nil
		}
		if err != nil {
			return counters, apperrors.NewDecodeError(counters.TotalFrames+1, err)
		}

		faces, err := detector.Detect(ctx, frame.ToRGB())
		if err != nil {
			return counters, apperrors.NewDetectionError(frame.Index, err)
		}
		cl, err := ClassifyFrame(faces)
		if err != nil {
			return counters, apperrors.NewDetectionError(frame.Index, err)
		}
		counters.Record(cl)

		a.publish(ctx, observer.AnalysisEvent{
			EventType: observer.FrameClassified,
			Source:    source,
			Frame: &observer.FrameOutcome{
				Index:        frame.Index,
				Class:        cl.Class.String(),
				HeadMovement: cl.HeadMovement,
				LipMovement:  cl.LipMovement,
			},
		})
	}
}

func (a *Analyzer) publish(ctx context.Context, event observer.AnalysisEvent) {
	if a.publisher == nil {
		return
	}
	a.publisher.NotifyObservers(ctx, event)
}
