package container

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/analyzer"
	"go-proctor-inspector/internal/config"
	"go-proctor-inspector/internal/factory"
	"go-proctor-inspector/internal/metrics"
	"go-proctor-inspector/internal/observer"
	"go-proctor-inspector/internal/service"
	"go-proctor-inspector/internal/storage"
	"go-proctor-inspector/internal/transport"
	"go-proctor-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	logger            *logrus.Logger
	collectors        *metrics.Collectors
	publisher         *observer.EventPublisher
	videoAnalyzer     *analyzer.Analyzer
	uploadStore       storage.UploadStore
	proctoringService service.ProctoringService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	collectors := metrics.New()

	publisher := observer.NewEventPublisher(logger)
	publisher.Subscribe(observer.NewLoggingObserver(logger))
	publisher.Subscribe(observer.NewMetricsObserver(collectors))

	// Build dependency graph
	decoder, err := factory.CreateDecoder(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	detectors, err := factory.CreateDetectorFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}
	videoAnalyzer := analyzer.New(decoder, detectors,
		analyzer.WithPublisher(publisher),
		analyzer.WithLogger(logger),
	)

	uploadStore, err := storage.NewTempFileStore(cfg.TempDir)
	if err != nil {
		return nil, err
	}

	proctoringService := service.NewProctoringService(validation.NewUploadValidator(), uploadStore, videoAnalyzer, logger)
	handler := transport.NewHandler(proctoringService, cfg, collectors, logger)

	return &Container{
		config:            cfg,
		logger:            logger,
		collectors:        collectors,
		publisher:         publisher,
		videoAnalyzer:     videoAnalyzer,
		uploadStore:       uploadStore,
		proctoringService: proctoringService,
		handler:           handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}
