package transport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-proctor-inspector/internal/config"
	apperrors "go-proctor-inspector/internal/errors"
	"go-proctor-inspector/internal/metrics"
	"go-proctor-inspector/internal/service"
	"go-proctor-inspector/pkg/models"
)

// uploadField is the multipart field carrying the recording
const uploadField = "video"

func NewHandler(svc service.ProctoringService, cfg *config.Config, collectors *metrics.Collectors, logger *logrus.Logger) http.Handler {
	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(logger),
		corsMiddleware(cfg.AllowedOrigins()),
	)

	// Configure routes
	r.GET("/", root)
	r.GET("/health", healthCheck)
	if collectors != nil {
		r.GET("/metrics", gin.WrapH(collectors.Handler()))
	}
	r.POST("/analyze",
		rateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		requestSizeLimiter(cfg.MaxUploadSize),
		analyzeVideo(svc, logger),
	)

	return r
}

func analyzeVideo(svc service.ProctoringService, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile(uploadField)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, logger, apperrors.NewUploadTooLargeError(tooLarge.Limit, err))
				return
			}
			respondError(c, logger, apperrors.NewMissingUploadError(uploadField, err))
			return
		}

		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"filename":   fileHeader.Filename,
			"bytes":      fileHeader.Size,
		}).Info("Processing video analysis request")

		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, logger, apperrors.NewInternalError("Failed to read uploaded video", err))
			return
		}
		defer file.Close()

		result, err := svc.AnalyzeUpload(c.Request.Context(), fileHeader.Filename, file)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{
		Status:  "ok",
		Message: "Proctoring video analysis service is running",
	})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	})
}

func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	code := apperrors.GetStatusCode(err)
	detail := apperrors.GetDetail(err)

	// Log the error with context
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{Detail: detail})
}
