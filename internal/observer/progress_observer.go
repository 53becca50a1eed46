package observer

import (
	"context"
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressObserver advances a terminal progress bar once per classified frame
type ProgressObserver struct {
	bar *progressbar.ProgressBar
}

// NewProgressObserver writes a bar to w. A total of -1 renders a spinner.
func NewProgressObserver(w io.Writer, total int, description string) *ProgressObserver {
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &ProgressObserver{bar: bar}
}

// OnEvent handles frame and completion events
func (o *ProgressObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	switch event.EventType {
	case FrameClassified:
		_ = o.bar.Add(1)
	case AnalysisCompleted, AnalysisFailed:
		_ = o.bar.Finish()
	}
}

// GetObserverName returns the observer name
func (o *ProgressObserver) GetObserverName() string {
	return "progress_observer"
}
