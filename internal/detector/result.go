package detector

import (
	"math"

	"github.com/kartoza/deepfake-detection/internal/media"
)

// Label is the verdict attached to a prediction
type Label string

const (
	LabelAuthentic Label = "authentic"
	LabelDeepfake  Label = "deepfake"
)

// ModelResult is the verdict of a single ensemble member
type ModelResult struct {
	Prediction Label   `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// PredictionResult is built fresh for each analysis and never mutated afterwards
type PredictionResult struct {
	ID                string                 `json:"id"`
	Prediction        Label                  `json:"prediction"`
	Confidence        float64                `json:"confidence"`
	IsAuthentic       bool                   `json:"is_authentic"`
	Evidence          map[string]float64     `json:"evidence"`
	ModelsUsed        []string               `json:"models_used"`
	ProcessingTime    float64                `json:"processing_time"`
	FileType          media.Kind             `json:"file_type"`
	ModelResults      map[string]ModelResult `json:"model_results,omitempty"`
	AnalysisTimestamp string                 `json:"analysis_timestamp"`
	Detector          string                 `json:"detector"`
}

// Request describes what to analyse. Data is only consulted by detectors
// that look at content.
type Request struct {
	Kind media.Kind
	Data []byte
}

// MeanEvidence returns the average of all evidence values, or 0 if there are none
func (r *PredictionResult) MeanEvidence() float64 {
	if len(r.Evidence) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.Evidence {
		sum += v
	}
	return sum / float64(len(r.Evidence))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
