package detector

import (
	"errors"
	"fmt"

	"github.com/kartoza/deepfake-detection/internal/media"
)

var (
	ErrUnsupportedKind  = errors.New("unsupported media kind")
	ErrModelUnavailable = errors.New("model not available")
	ErrEmptyInput       = errors.New("no media content supplied")
)

// AnalysisError is returned by Analyze when a detector cannot produce a result
type AnalysisError struct {
	Detector string
	Kind     media.Kind
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s analysis of %s failed: %v", e.Detector, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
