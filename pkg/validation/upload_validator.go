package validation

import (
	"path/filepath"
	"strings"

	apperrors "go-proctor-inspector/internal/errors"
)

// UploadValidator handles validation of uploaded recordings
type UploadValidator struct {
	allowedExtensions []string
}

// NewUploadValidator creates a validator accepting .webm and .mp4 recordings
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{
		allowedExtensions: []string{".webm", ".mp4"},
	}
}

// NewUploadValidatorWithExtensions creates a validator with a custom extension list
func NewUploadValidatorWithExtensions(extensions []string) *UploadValidator {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &UploadValidator{allowedExtensions: normalized}
}

// ValidateFilename checks the upload name against the allowed extensions.
// Matching is case-insensitive.
func (v *UploadValidator) ValidateFilename(filename string) error {
	if !v.isExtensionAllowed(Extension(filename)) {
		return apperrors.NewInvalidFormatError(filename)
	}
	return nil
}

// ValidateSize rejects zero-byte uploads
func (v *UploadValidator) ValidateSize(size int64) error {
	if size <= 0 {
		return apperrors.NewEmptyUploadError()
	}
	return nil
}

// Extension returns the lower-cased extension of filename, including the dot
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

func (v *UploadValidator) isExtensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
