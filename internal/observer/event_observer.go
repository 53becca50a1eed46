package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-proctor-inspector/pkg/models"
)

// AnalysisEvent represents an analysis event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Frame          *FrameOutcome          `json:"frame,omitempty"`
	Result         *models.AnalysisResult `json:"result,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// FrameOutcome is the classification of a single frame
type FrameOutcome struct {
	Index        int    `json:"index"`
	Class        string `json:"class"`
	HeadMovement bool   `json:"head_movement"`
	LipMovement  bool   `json:"lip_movement"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when the video has been opened
	AnalysisStarted EventType = "analysis_started"
	// FrameClassified after every frame
	FrameClassified EventType = "frame_classified"
	// AnalysisCompleted when a verdict has been produced
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analysis aborts
	AnalysisFailed EventType = "analysis_failed"
)

// Frame classes carried by FrameOutcome.Class
const (
	ClassNoFace        = "no_face"
	ClassMultipleFaces = "multiple_faces"
	ClassSingleFace    = "single_face"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"source":     event.Source,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case AnalysisStarted:
		o.logger.WithFields(fields).Info("Video analysis started")
	case FrameClassified:
		if event.Frame != nil {
			fields["frame"] = event.Frame.Index
			fields["class"] = event.Frame.Class
			fields["head_movement"] = event.Frame.HeadMovement
			fields["lip_movement"] = event.Frame.LipMovement
		}
		o.logger.WithFields(fields).Trace("Frame classified")
	case AnalysisCompleted:
		fields["processing_time"] = event.ProcessingTime
		if r := event.Result; r != nil {
			fields["cheated"] = r.Cheated
			fields["total_frames"] = r.Details.TotalFrames
			fields["face_missing"] = r.Details.FaceMissing
			fields["multiple_faces"] = r.Details.MultipleFaces
			fields["lip_movement"] = r.Details.LipMovement
			fields["head_movement"] = r.Details.HeadMovement
		}
		o.logger.WithFields(fields).Info("Video analysis completed")
	case AnalysisFailed:
		o.logger.WithFields(fields).Error("Video analysis failed")
	default:
		o.logger.WithFields(fields).Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *logrus.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(logger *logrus.Logger) *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers the event to every observer in subscription order.
// Delivery is synchronous so frame events reach observers in frame order.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		p.deliver(ctx, obs, event)
	}
}

func (p *EventPublisher) deliver(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			// An observer must never take the analysis down with it
			p.logger.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
