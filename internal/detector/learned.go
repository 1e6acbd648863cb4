package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// Classifier is the scoring backend of a LearnedDetector
type Classifier interface {
	Available() bool
	IsTrained() bool
	InputDim() int
	Predict(features []float64) (float64, error)
}

// LearnedDetector scores the uploaded bytes with a trained classifier
type LearnedDetector struct {
	model     Classifier
	threshold float64
	now       func() time.Time
}

// NewLearnedDetector fails with ErrModelUnavailable unless the classifier
// is compiled in and carries trained weights
func NewLearnedDetector(model Classifier, threshold float64) (*LearnedDetector, error) {
	if model == nil || !model.Available() {
		return nil, fmt.Errorf("learned detector: %w", ErrModelUnavailable)
	}
	if !model.IsTrained() {
		return nil, fmt.Errorf("learned detector: classifier has no trained weights: %w", ErrModelUnavailable)
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	return &LearnedDetector{model: model, threshold: threshold, now: time.Now}, nil
}

// Name identifies the detector in results and status output
func (d *LearnedDetector) Name() string {
	return "learned"
}

// Analyze runs the classifier over the request content
func (d *LearnedDetector) Analyze(ctx context.Context, req Request) (*PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if media.ParseKind(string(req.Kind)) == media.KindUnknown {
		return nil, &AnalysisError{Detector: d.Name(), Kind: req.Kind, Err: ErrUnsupportedKind}
	}
	if len(req.Data) == 0 {
		return nil, &AnalysisError{Detector: d.Name(), Kind: req.Kind, Err: ErrEmptyInput}
	}

	started := time.Now()
	score, err := d.model.Predict(media.Features(req.Data, d.model.InputDim()))
	if err != nil {
		return nil, &AnalysisError{Detector: d.Name(), Kind: req.Kind, Err: err}
	}

	isAuthentic := score <= d.threshold
	label := LabelDeepfake
	confidence := score
	if isAuthentic {
		label = LabelAuthentic
		confidence = 1 - score
	}
	confidence = round(clamp(confidence, 0, 1), 3)

	profile := ProfileFor(req.Kind)
	evidence := make(map[string]float64, len(profile.Evidence))
	for _, name := range profile.Evidence {
		evidence[name] = round(clamp(score, 0, 1), 3)
	}

	return &PredictionResult{
		ID:             uuid.New().String(),
		Prediction:     label,
		Confidence:     confidence,
		IsAuthentic:    isAuthentic,
		Evidence:       evidence,
		ModelsUsed:     []string{"feedforward_classifier"},
		ProcessingTime: round(time.Since(started).Seconds(), 2),
		FileType:       req.Kind,
		ModelResults: map[string]ModelResult{
			"feedforward_classifier": {Prediction: label, Confidence: confidence},
		},
		AnalysisTimestamp: d.now().UTC().Format(time.RFC3339),
		Detector:          d.Name(),
	}, nil
}
