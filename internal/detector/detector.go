// Package detector produces deepfake verdicts for media. The default
// implementation is a calibrated random generator; a learned classifier can
// be selected at construction time when trained weights are available.
package detector

import (
	"context"
	"errors"
	"log"

	"github.com/kartoza/deepfake-detection/internal/config"
	"github.com/kartoza/deepfake-detection/internal/nn"
)

// Detector analyses one piece of media
type Detector interface {
	Name() string
	Analyze(ctx context.Context, req Request) (*PredictionResult, error)
}

// Observer is notified of every successful analysis
type Observer interface {
	Observe(ctx context.Context, result *PredictionResult)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, result *PredictionResult)

// Observe calls f
func (f ObserverFunc) Observe(ctx context.Context, result *PredictionResult) {
	f(ctx, result)
}

// New builds the detector selected by cfg. A learned detector that cannot
// be loaded degrades to the synthetic generator.
func New(cfg config.Detector) Detector {
	if cfg.Mode == "learned" {
		d, err := newLearnedFromConfig(cfg)
		if err == nil {
			log.Printf("Using learned detector (model: %s)", cfg.ModelPath)
			return d
		}
		log.Printf("Warning: learned detector unavailable, falling back to synthetic: %v", err)
	}
	return NewSyntheticDetector(cfg.Seed, NoiseModel(cfg.Noise))
}

func newLearnedFromConfig(cfg config.Detector) (*LearnedDetector, error) {
	model := nn.NewClassifier(nn.DefaultClassifierConfig())
	if !model.Available() {
		return nil, ErrModelUnavailable
	}
	if cfg.ModelPath == "" {
		return nil, errors.New("model_path is not set")
	}
	if err := model.Load(cfg.ModelPath); err != nil {
		return nil, err
	}
	return NewLearnedDetector(model, cfg.Threshold)
}

// Observed wraps a detector so every successful result is passed to the observers
func Observed(d Detector, observers ...Observer) Detector {
	return &observed{Detector: d, observers: observers}
}

type observed struct {
	Detector
	observers []Observer
}

func (o *observed) Analyze(ctx context.Context, req Request) (*PredictionResult, error) {
	result, err := o.Detector.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, obs := range o.observers {
		obs.Observe(ctx, result)
	}
	return result, nil
}
