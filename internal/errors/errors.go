package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeInvalidFormat ErrorType = "invalid_format"
	ErrorTypeEmptyUpload   ErrorType = "empty_upload"
	ErrorTypeMissingUpload ErrorType = "missing_upload"
	ErrorTypeTooLarge      ErrorType = "upload_too_large"
	ErrorTypeVideoOpen     ErrorType = "video_open"
	ErrorTypeEmptyVideo    ErrorType = "empty_video"
	ErrorTypeDecode        ErrorType = "decode"
	ErrorTypeDetection     ErrorType = "detection"
	ErrorTypeInternal      ErrorType = "internal"
)

const (
	MsgInvalidFormat = "Invalid file format. Only .webm and .mp4 files are supported."
	MsgEmptyUpload   = "Empty video file received"
	MsgVideoOpen     = "Failed to open video file"
	MsgEmptyVideo    = "No frames were processed from the video"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Detail is the text surfaced to API clients.
func (e *AppError) Detail() string {
	if e.Cause != nil && e.StatusCode >= http.StatusInternalServerError {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// NewInvalidFormatError rejects an upload whose extension is not supported
func NewInvalidFormatError(filename string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidFormat,
		Message:    MsgInvalidFormat,
		StatusCode: http.StatusBadRequest,
		Cause:      fmt.Errorf("unsupported file %q", filename),
	}
}

// NewEmptyUploadError rejects a zero-byte upload
func NewEmptyUploadError() *AppError {
	return &AppError{
		Type:       ErrorTypeEmptyUpload,
		Message:    MsgEmptyUpload,
		StatusCode: http.StatusBadRequest,
	}
}

// NewMissingUploadError reports a request without the expected multipart file
func NewMissingUploadError(field string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeMissingUpload,
		Message:    fmt.Sprintf("Missing %q file in multipart form", field),
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewUploadTooLargeError reports a body over the configured size cap
func NewUploadTooLargeError(limit int64, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTooLarge,
		Message:    fmt.Sprintf("Uploaded file exceeds the %d byte limit", limit),
		StatusCode: http.StatusRequestEntityTooLarge,
		Cause:      cause,
	}
}

// NewVideoOpenError reports a video the decoder cannot open
func NewVideoOpenError(cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeVideoOpen,
		Message:    MsgVideoOpen,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewEmptyVideoError reports a video that opened but yielded no frames
func NewEmptyVideoError() *AppError {
	return &AppError{
		Type:       ErrorTypeEmptyVideo,
		Message:    MsgEmptyVideo,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewDecodeError reports a decoder that broke mid-stream
func NewDecodeError(frame int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    fmt.Sprintf("Failed to decode frame %d", frame),
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewDetectionError reports a landmark detector failure
func NewDetectionError(frame int, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDetection,
		Message:    fmt.Sprintf("Landmark detection failed on frame %d", frame),
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error chain carries an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetDetail extracts the client-facing message from an error
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail()
	}
	return err.Error()
}
