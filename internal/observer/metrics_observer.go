package observer

import (
	"context"
	"strconv"

	"go-proctor-inspector/internal/metrics"
)

// MetricsObserver feeds analysis events into Prometheus collectors
type MetricsObserver struct {
	collectors *metrics.Collectors
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver(collectors *metrics.Collectors) Observer {
	return &MetricsObserver{collectors: collectors}
}

// OnEvent handles analysis events by updating collectors
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	c := o.collectors

	switch event.EventType {
	case AnalysisStarted:
		c.AnalysesInFlight.Inc()
	case FrameClassified:
		c.FramesTotal.Inc()
		if f := event.Frame; f != nil {
			switch f.Class {
			case ClassNoFace:
				c.ViolationsTotal.WithLabelValues("face_missing").Inc()
			case ClassMultipleFaces:
				c.ViolationsTotal.WithLabelValues("multiple_faces").Inc()
			}
			if f.HeadMovement {
				c.ViolationsTotal.WithLabelValues("head_movement").Inc()
			}
			if f.LipMovement {
				c.ViolationsTotal.WithLabelValues("lip_movement").Inc()
			}
		}
	case AnalysisCompleted:
		c.AnalysesInFlight.Dec()
		c.AnalysesTotal.WithLabelValues("success").Inc()
		c.AnalysisDuration.Observe(event.ProcessingTime.Seconds())
		if event.Result != nil {
			c.VerdictsTotal.WithLabelValues(strconv.FormatBool(event.Result.Cheated)).Inc()
		}
	case AnalysisFailed:
		// Failures before the video opened never saw AnalysisStarted
		if started, _ := event.Metadata["started"].(bool); started {
			c.AnalysesInFlight.Dec()
		}
		c.AnalysesTotal.WithLabelValues("failure").Inc()
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}
