package analyzer

import (
	"time"

	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/observer"
)

// Option configures an Analyzer
type Option func(*Analyzer)

// WithPublisher routes analysis events to the publisher's observers
func WithPublisher(p *observer.EventPublisher) Option {
	return func(a *Analyzer) {
		a.publisher = p
	}
}

// WithLogger sets the logger used for cleanup warnings
func WithLogger(logger *logrus.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}
