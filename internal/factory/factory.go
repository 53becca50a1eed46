package factory

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/config"
	"go-proctor-inspector/internal/landmark"
	"go-proctor-inspector/internal/video"
)

// DecoderType represents different video decoding backends
type DecoderType string

const (
	// FFmpegDecoder pipes raw frames out of an ffmpeg process
	FFmpegDecoder DecoderType = config.DecoderFFmpeg
	// GoCVDecoder reads frames through OpenCV; requires the gocv build tag
	GoCVDecoder DecoderType = config.DecoderGoCV
)

// DetectorType represents different landmark model backends
type DetectorType string

const (
	// PythonDetector runs a local MediaPipe worker process per analysis
	PythonDetector DetectorType = config.DetectorPython
	// WebSocketDetector streams frames to a remote landmark service
	WebSocketDetector DetectorType = config.DetectorWebSocket
)

// CreateDecoder creates a decoder based on the configured backend
func CreateDecoder(cfg *config.Config, logger *logrus.Logger) (video.Decoder, error) {
	switch DecoderType(cfg.Decoder) {
	case FFmpegDecoder:
		return video.NewFFmpegDecoder(cfg.FFmpegPath, cfg.FFprobePath, logger), nil
	case GoCVDecoder:
		return video.NewGoCVDecoder()
	default:
		return nil, fmt.Errorf("unsupported decoder type: %s", cfg.Decoder)
	}
}

// CreateDetectorFactory creates the per-analysis detector factory for the configured backend
func CreateDetectorFactory(cfg *config.Config, logger *logrus.Logger) (landmark.Factory, error) {
	opts := landmark.DefaultOptions()
	if cfg.DetectorMaxFaces > 0 {
		opts.MaxFaces = cfg.DetectorMaxFaces
	}

	switch DetectorType(cfg.Detector) {
	case PythonDetector:
		return &landmark.PythonFactory{
			PythonPath: cfg.PythonPath,
			ScriptPath: cfg.DetectorScript,
			Options:    opts,
			Logger:     logger,
		}, nil
	case WebSocketDetector:
		if cfg.DetectorURL == "" {
			return nil, fmt.Errorf("websocket detector requires DETECTOR_URL")
		}
		return &landmark.WebSocketFactory{
			URL:     cfg.DetectorURL,
			Options: opts,
			Logger:  logger,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported detector type: %s", cfg.Detector)
	}
}
