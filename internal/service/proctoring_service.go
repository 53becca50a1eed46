package service

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	apperrors "go-proctor-inspector/internal/errors"
	"go-proctor-inspector/internal/storage"
	"go-proctor-inspector/pkg/models"
	"go-proctor-inspector/pkg/validation"
)

// VideoAnalyzer analyzes a video file on disk
type VideoAnalyzer interface {
	Analyze(ctx context.Context, path string) (*models.AnalysisResult, error)
}

// ProctoringService turns an uploaded recording into a verdict
type ProctoringService interface {
	AnalyzeUpload(ctx context.Context, filename string, content io.Reader) (*models.AnalysisResult, error)
}

type proctoringService struct {
	validator *validation.UploadValidator
	store     storage.UploadStore
	analyzer  VideoAnalyzer
	logger    *logrus.Logger
}

// NewProctoringService creates a new proctoring service
func NewProctoringService(
	validator *validation.UploadValidator,
	store storage.UploadStore,
	videoAnalyzer VideoAnalyzer,
	logger *logrus.Logger,
) ProctoringService {
	return &proctoringService{
		validator: validator,
		store:     store,
		analyzer:  videoAnalyzer,
		logger:    logger,
	}
}

// AnalyzeUpload validates the upload, stages it on disk, analyzes it and always removes the staged file
func (s *proctoringService) AnalyzeUpload(ctx context.Context, filename string, content io.Reader) (*models.AnalysisResult, error) {
	if err := s.validator.ValidateFilename(filename); err != nil {
		return nil, err
	}

	path, size, err := s.store.Save(ctx, content, validation.Extension(filename))
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to store uploaded video", err)
	}
	defer func() {
		if rerr := s.store.Remove(path); rerr != nil {
			s.logger.WithError(rerr).WithField("path", path).Warn("Failed to delete temporary file")
		}
	}()

	if err := s.validator.ValidateSize(size); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"filename": filename,
		"bytes":    size,
	}).Debug("Upload staged for analysis")

	return s.analyzer.Analyze(ctx, path)
}
