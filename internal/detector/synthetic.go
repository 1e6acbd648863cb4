package detector

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kartoza/deepfake-detection/internal/media"
)

// NoiseModel selects how the per-call authentic probability is perturbed
type NoiseModel string

const (
	NoiseUniform  NoiseModel = "uniform"
	NoiseGaussian NoiseModel = "gaussian"
)

// SyntheticDetector fabricates plausible-looking predictions from random
// draws. It never inspects the media and cannot fail.
type SyntheticDetector struct {
	noise NoiseModel
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticDetector creates a generator. A zero seed seeds from the clock.
func NewSyntheticDetector(seed int64, noise NoiseModel) *SyntheticDetector {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if noise != NoiseGaussian {
		noise = NoiseUniform
	}
	return &SyntheticDetector{
		noise: noise,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Name identifies the detector in results and status output
func (d *SyntheticDetector) Name() string {
	return "synthetic"
}

// Analyze draws one prediction for the requested kind
func (d *SyntheticDetector) Analyze(_ context.Context, req Request) (*PredictionResult, error) {
	return d.Generate(req.Kind), nil
}

// Generate produces a single result. Every field is an independent draw
// conditioned only on the label.
func (d *SyntheticDetector) Generate(kind media.Kind) *PredictionResult {
	profile := ProfileFor(kind)

	d.mu.Lock()
	defer d.mu.Unlock()

	p := clamp(profile.BaseAuthentic+d.noiseDraw(), minAuthentic, maxAuthentic)
	isAuthentic := d.rng.Float64() < p

	label := LabelDeepfake
	confBand, evBand := confidenceDeepfake, evidenceDeepfake
	if isAuthentic {
		label = LabelAuthentic
		confBand, evBand = confidenceAuthentic, evidenceAuthentic
	}

	confidence := d.uniform(confBand)
	if d.rng.Float64() < uncertainRate {
		confidence = d.uniform(confidenceUncertain)
	}
	confidence = round(confidence, 3)

	evidence := make(map[string]float64, len(profile.Evidence))
	for _, name := range profile.Evidence {
		evidence[name] = round(d.uniform(evBand), 3)
	}

	members := make(map[string]ModelResult, len(profile.Models)+1)
	for _, name := range profile.Models {
		members[name] = ModelResult{
			Prediction: label,
			Confidence: round(clamp(confidence*d.uniform(memberJitter), 0, 1), 3),
		}
	}
	members["ensemble"] = ModelResult{Prediction: label, Confidence: confidence}

	fileType := kind
	if fileType == "" {
		fileType = media.KindUnknown
	}

	return &PredictionResult{
		ID:                uuid.New().String(),
		Prediction:        label,
		Confidence:        confidence,
		IsAuthentic:       isAuthentic,
		Evidence:          evidence,
		ModelsUsed:        append([]string(nil), profile.Models...),
		ProcessingTime:    round(d.uniform(processingTime), 2),
		FileType:          fileType,
		ModelResults:      members,
		AnalysisTimestamp: d.now().UTC().Format(time.RFC3339),
		Detector:          d.Name(),
	}
}

// noiseDraw must be called with mu held
func (d *SyntheticDetector) noiseDraw() float64 {
	if d.noise == NoiseGaussian {
		return d.rng.NormFloat64() * noiseSpread
	}
	return (d.rng.Float64()*2 - 1) * noiseSpread
}

// uniform must be called with mu held
func (d *SyntheticDetector) uniform(b band) float64 {
	return b.lo + d.rng.Float64()*(b.hi-b.lo)
}
