//go:build !cgo_gorgonia

package nn

import "errors"

// Stub implementation when Gorgonia is not available.
// Build with -tags cgo_gorgonia to enable the real implementation.

// ErrUnavailable is returned by every stub operation that needs the network
var ErrUnavailable = errors.New("built without cgo_gorgonia tag")

// Classifier is a stub when built without cgo_gorgonia tag
type Classifier struct {
	cfg ClassifierConfig
}

// ClassifierConfig holds model configuration
type ClassifierConfig struct {
	InputDim     int
	HiddenDim    int
	NumLayers    int
	LearningRate float64
}

// DefaultClassifierConfig returns the same dimensions as the real model so
// feature extraction does not depend on the build
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		InputDim:     64,
		HiddenDim:    32,
		NumLayers:    3,
		LearningRate: 0.001,
	}
}

// NewClassifier returns a stub (Gorgonia not compiled in)
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Available reports whether a real network backs this classifier
func (m *Classifier) Available() bool {
	return false
}

// InputDim returns the expected feature vector length
func (m *Classifier) InputDim() int {
	return m.cfg.InputDim
}

// Predict is unavailable without Gorgonia
func (m *Classifier) Predict(_ []float64) (float64, error) {
	return 0, ErrUnavailable
}

// Train is unavailable without Gorgonia
func (m *Classifier) Train(_ [][]float64, _ []float64, _ int) error {
	return ErrUnavailable
}

// IsTrained always returns false without Gorgonia
func (m *Classifier) IsTrained() bool {
	return false
}

// GetConfig returns stub config
func (m *Classifier) GetConfig() map[string]interface{} {
	return map[string]interface{}{
		"available": false,
		"message":   "Built without cgo_gorgonia tag. Rebuild with: go build -tags cgo_gorgonia",
	}
}

// Save is unavailable without Gorgonia
func (m *Classifier) Save(_ string) error {
	return ErrUnavailable
}

// Load is unavailable without Gorgonia
func (m *Classifier) Load(_ string) error {
	return ErrUnavailable
}
