package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "go-sign-recognizer/internal/errors"
)

// UploadValidator checks uploaded file names and sizes before decoding
type UploadValidator struct {
	allowedExtensions []string
	maxSize           int64
}

// NewUploadValidator creates an upload validator. Extensions are compared
// case-insensitively without the leading dot. A maxSize of zero disables
// the size check.
func NewUploadValidator(extensions []string, maxSize int64) *UploadValidator {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return &UploadValidator{allowedExtensions: normalized, maxSize: maxSize}
}

// AllowedExtensions returns the configured allow-list
func (v *UploadValidator) AllowedExtensions() []string {
	out := make([]string, len(v.allowedExtensions))
	copy(out, v.allowedExtensions)
	return out
}

// ValidateUpload rejects empty, oversized or unexpected files
func (v *UploadValidator) ValidateUpload(filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return apperrors.NewValidationError("No file selected", nil)
	}
	if size == 0 {
		return apperrors.NewValidationError("Uploaded file is empty", nil)
	}
	if v.maxSize > 0 && size > v.maxSize {
		return apperrors.NewValidationError(
			fmt.Sprintf("File exceeds maximum size of %d bytes", v.maxSize), nil)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !v.isExtensionAllowed(ext) {
		return apperrors.NewValidationError(
			fmt.Sprintf("File type not allowed. Allowed types: %s", strings.Join(v.allowedExtensions, ", ")), nil)
	}
	return nil
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
