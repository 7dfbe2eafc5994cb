package inference

import (
	"errors"
	"fmt"
)

// ErrInferenceTimeout is returned by a timeout-bounded classifier when the
// result did not arrive in time.
var ErrInferenceTimeout = errors.New("inference timed out")

// ModelLoadError reports a model artifact that is missing, malformed or has a
// signature the pipeline cannot drive. It is fatal at startup.
type ModelLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ModelLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load model %q: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("load model %q: %s", e.Path, e.Reason)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// InvalidImageError reports input that cannot be turned into an ImageTensor.
type InvalidImageError struct {
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid image: %s: %v", e.Reason, e.Err)
	}
	return "invalid image: " + e.Reason
}

func (e *InvalidImageError) Unwrap() error {
	return e.Err
}

// ClassifierError reports a classifier that failed or produced output that
// does not line up with the configured labels. It signals a misconfigured
// deployment rather than a bad request.
type ClassifierError struct {
	Reason string
	Err    error
}

func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier: %s: %v", e.Reason, e.Err)
	}
	return "classifier: " + e.Reason
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

func invalidImage(reason string, err error) error {
	return &InvalidImageError{Reason: reason, Err: err}
}

func classifierFailure(reason string, err error) error {
	return &ClassifierError{Reason: reason, Err: err}
}

// IsInvalidImage reports whether err is or wraps an InvalidImageError.
func IsInvalidImage(err error) bool {
	var target *InvalidImageError
	return errors.As(err, &target)
}

// IsClassifierError reports whether err is or wraps a ClassifierError.
func IsClassifierError(err error) bool {
	var target *ClassifierError
	return errors.As(err, &target)
}

// IsModelLoadError reports whether err is or wraps a ModelLoadError.
func IsModelLoadError(err error) bool {
	var target *ModelLoadError
	return errors.As(err, &target)
}
