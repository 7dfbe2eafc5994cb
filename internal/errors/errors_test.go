package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"go-sign-recognizer/internal/inference"
)

func TestFromInference(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		wantStatus int
	}{
		{"invalid image", &inference.InvalidImageError{Reason: "zero area"}, ErrorTypeValidation, http.StatusBadRequest},
		{"classifier", &inference.ClassifierError{Reason: "length mismatch"}, ErrorTypeInternal, http.StatusInternalServerError},
		{"model load", &inference.ModelLoadError{Path: "m.onnx", Reason: "missing"}, ErrorTypeInternal, http.StatusInternalServerError},
		{"timeout", fmt.Errorf("spell frame 2: %w", inference.ErrInferenceTimeout), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"unknown", stderrors.New("boom"), ErrorTypeInternal, http.StatusInternalServerError},
		{"already app error", NewNotFoundError("gone", nil), ErrorTypeNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromInference(tt.err)
			if appErr.Type != tt.wantType || appErr.StatusCode != tt.wantStatus {
				t.Errorf("Expected %s/%d, got %s/%d", tt.wantType, tt.wantStatus, appErr.Type, appErr.StatusCode)
			}
		})
	}

	if FromInference(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestFromInference_KeepsReasonAsDetails(t *testing.T) {
	appErr := FromInference(&inference.InvalidImageError{Reason: "image has zero area"})
	if appErr.Details != "image has zero area" {
		t.Errorf("Expected reason in details, got %q", appErr.Details)
	}
}

func TestGetStatusCode_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewUnauthorizedError("missing user", nil))
	if GetStatusCode(wrapped) != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", GetStatusCode(wrapped))
	}
	if !IsType(wrapped, ErrorTypeUnauthorized) {
		t.Error("Expected wrapped error to keep its type")
	}
	if GetStatusCode(stderrors.New("plain")) != http.StatusInternalServerError {
		t.Error("Expected 500 for plain errors")
	}
}
