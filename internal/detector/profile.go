package detector

import "github.com/kartoza/deepfake-detection/internal/media"

// Profile calibrates the generator for one media kind
type Profile struct {
	Kind          media.Kind
	BaseAuthentic float64
	Evidence      []string
	Models        []string
}

// band is a uniform range [lo, hi)
type band struct{ lo, hi float64 }

var (
	confidenceAuthentic = band{0.72, 0.96}
	confidenceDeepfake  = band{0.58, 0.92}
	confidenceUncertain = band{0.45, 0.65}

	// The two evidence bands do not overlap, so every field's expected
	// value is strictly higher for deepfakes.
	evidenceAuthentic = band{0.02, 0.30}
	evidenceDeepfake  = band{0.50, 0.90}

	processingTime = band{1.2, 4.8}
	memberJitter   = band{0.92, 1.08}
)

const (
	uncertainRate = 0.12
	noiseSpread   = 0.15
	minAuthentic  = 0.1
	maxAuthentic  = 0.9
)

var defaultProfile = Profile{
	Kind:          media.KindUnknown,
	BaseAuthentic: 0.60,
	Evidence:      []string{"facial_inconsistencies", "temporal_artifacts", "compression_anomalies"},
	Models:        []string{"enhanced_cnn_v2", "temporal_analysis_v1", "ensemble_model"},
}

var profiles = map[media.Kind]Profile{
	media.KindImage: {
		Kind:          media.KindImage,
		BaseAuthentic: 0.62,
		Evidence:      []string{"facial_inconsistencies", "texture_artifacts", "lighting_anomalies", "compression_anomalies"},
		Models:        []string{"cnn_v2", "face_detector", "texture_analyzer"},
	},
	media.KindVideo: {
		Kind:          media.KindVideo,
		BaseAuthentic: 0.55,
		Evidence:      []string{"temporal_artifacts", "frame_inconsistencies", "motion_anomalies", "compression_anomalies"},
		Models:        []string{"temporal_v1", "3d_cnn", "optical_flow"},
	},
	media.KindAudio: {
		Kind:          media.KindAudio,
		BaseAuthentic: 0.69,
		Evidence:      []string{"spectral_anomalies", "voice_inconsistencies", "frequency_artifacts", "synthesis_artifacts"},
		Models:        []string{"audio_v3", "spectral_analyzer", "voice_consistency"},
	},
}

// ProfileFor returns the calibration profile of a kind. Unrecognised kinds
// get the baseline profile instead of an error.
func ProfileFor(kind media.Kind) Profile {
	if p, ok := profiles[kind]; ok {
		return p
	}
	return defaultProfile
}
