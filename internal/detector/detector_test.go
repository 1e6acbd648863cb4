package detector

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/kartoza/deepfake-detection/internal/config"
	"github.com/kartoza/deepfake-detection/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticRateConvergesToProfile(t *testing.T) {
	tests := []struct {
		kind  media.Kind
		noise NoiseModel
	}{
		{media.KindImage, NoiseUniform},
		{media.KindVideo, NoiseUniform},
		{media.KindAudio, NoiseUniform},
		{media.KindUnknown, NoiseUniform},
		{media.KindImage, NoiseGaussian},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+string(tt.noise), func(t *testing.T) {
			d := NewSyntheticDetector(7, tt.noise)
			const n = 2000
			authentic := 0
			for i := 0; i < n; i++ {
				if d.Generate(tt.kind).IsAuthentic {
					authentic++
				}
			}
			rate := float64(authentic) / n
			assert.InDelta(t, ProfileFor(tt.kind).BaseAuthentic, rate, 0.06)
		})
	}
}

func TestSmallSampleWithinTwentyPoints(t *testing.T) {
	d := NewSyntheticDetector(11, NoiseUniform)
	authentic := 0
	for i := 0; i < 50; i++ {
		if d.Generate(media.KindImage).IsAuthentic {
			authentic++
		}
	}
	assert.InDelta(t, 0.62, float64(authentic)/50, 0.20)
}

func TestResultFieldsInRange(t *testing.T) {
	d := NewSyntheticDetector(3, NoiseGaussian)

	for _, kind := range []media.Kind{media.KindImage, media.KindVideo, media.KindAudio, media.KindUnknown, ""} {
		for i := 0; i < 500; i++ {
			r := d.Generate(kind)

			require.GreaterOrEqual(t, r.Confidence, 0.0)
			require.LessOrEqual(t, r.Confidence, 1.0)
			require.GreaterOrEqual(t, r.ProcessingTime, 0.0)
			require.LessOrEqual(t, r.ProcessingTime, 5.0)
			require.Equal(t, r.Prediction == LabelAuthentic, r.IsAuthentic)
			require.NotEmpty(t, r.ID)
			require.NotEmpty(t, r.Evidence)

			for name, v := range r.Evidence {
				require.GreaterOrEqualf(t, v, 0.0, "evidence %s", name)
				require.LessOrEqualf(t, v, 1.0, "evidence %s", name)
			}
			for name, m := range r.ModelResults {
				require.Equalf(t, r.Prediction, m.Prediction, "model %s", name)
				require.LessOrEqual(t, m.Confidence, 1.0)
			}
		}
	}
}

func TestDeepfakeEvidenceExceedsAuthentic(t *testing.T) {
	for _, kind := range []media.Kind{media.KindImage, media.KindVideo, media.KindAudio, media.KindUnknown} {
		t.Run(string(kind), func(t *testing.T) {
			d := NewSyntheticDetector(99, NoiseUniform)
			sums := map[Label]map[string]float64{LabelAuthentic: {}, LabelDeepfake: {}}
			counts := map[Label]int{}

			for counts[LabelAuthentic] < 1000 || counts[LabelDeepfake] < 1000 {
				r := d.Generate(kind)
				counts[r.Prediction]++
				for name, v := range r.Evidence {
					sums[r.Prediction][name] += v
				}
			}

			for _, name := range ProfileFor(kind).Evidence {
				authMean := sums[LabelAuthentic][name] / float64(counts[LabelAuthentic])
				fakeMean := sums[LabelDeepfake][name] / float64(counts[LabelDeepfake])
				assert.Greaterf(t, fakeMean, authMean, "evidence %s", name)
			}
		})
	}
}

func TestUncertainBandAppears(t *testing.T) {
	d := NewSyntheticDetector(5, NoiseUniform)
	low := 0
	const n = 3000
	for i := 0; i < n; i++ {
		r := d.Generate(media.KindImage)
		if r.Confidence < confidenceDeepfake.lo {
			low++
		}
	}
	// only the uncertain override can go below the deepfake band
	assert.InDelta(t, uncertainRate*0.65, float64(low)/n, 0.04)
}

func TestEvidenceKeysFollowProfile(t *testing.T) {
	d := NewSyntheticDetector(1, NoiseUniform)

	for _, kind := range []media.Kind{media.KindImage, media.KindVideo, media.KindAudio} {
		r := d.Generate(kind)
		keys := make([]string, 0, len(r.Evidence))
		for k := range r.Evidence {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		want := append([]string(nil), ProfileFor(kind).Evidence...)
		sort.Strings(want)
		assert.Equal(t, want, keys)
		assert.Equal(t, ProfileFor(kind).Models, r.ModelsUsed)
		assert.Equal(t, kind, r.FileType)
	}

	img := d.Generate(media.KindImage)
	assert.Contains(t, img.Evidence, "facial_inconsistencies")
	assert.Contains(t, img.Evidence, "texture_artifacts")
}

func TestUnknownKindFallsBack(t *testing.T) {
	d := NewSyntheticDetector(1, NoiseUniform)

	r, err := d.Analyze(context.Background(), Request{Kind: media.Kind("hologram")})
	require.NoError(t, err)
	assert.Equal(t, defaultProfile.Models, r.ModelsUsed)

	r = d.Generate("")
	assert.Equal(t, media.KindUnknown, r.FileType)
}

func TestSeededGeneratorsAgree(t *testing.T) {
	a := NewSyntheticDetector(1234, NoiseUniform)
	b := NewSyntheticDetector(1234, NoiseUniform)

	for i := 0; i < 20; i++ {
		ra, rb := a.Generate(media.KindVideo), b.Generate(media.KindVideo)
		assert.Equal(t, ra.Prediction, rb.Prediction)
		assert.Equal(t, ra.Confidence, rb.Confidence)
		assert.Equal(t, ra.Evidence, rb.Evidence)
	}
}

type fakeClassifier struct {
	available bool
	trained   bool
	score     float64
	err       error
}

func (f *fakeClassifier) Available() bool                    { return f.available }
func (f *fakeClassifier) IsTrained() bool                    { return f.trained }
func (f *fakeClassifier) InputDim() int                      { return 8 }
func (f *fakeClassifier) Predict([]float64) (float64, error) { return f.score, f.err }

func TestLearnedDetectorConstruction(t *testing.T) {
	_, err := NewLearnedDetector(nil, 0.5)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewLearnedDetector(&fakeClassifier{available: false}, 0.5)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = NewLearnedDetector(&fakeClassifier{available: true, trained: false}, 0.5)
	assert.ErrorIs(t, err, ErrModelUnavailable)

	d, err := NewLearnedDetector(&fakeClassifier{available: true, trained: true}, 0)
	require.NoError(t, err)
	assert.Equal(t, "learned", d.Name())
}

func TestLearnedDetectorAnalyze(t *testing.T) {
	ctx := context.Background()
	model := &fakeClassifier{available: true, trained: true, score: 0.8}
	d, err := NewLearnedDetector(model, 0.5)
	require.NoError(t, err)

	r, err := d.Analyze(ctx, Request{Kind: media.KindImage, Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, LabelDeepfake, r.Prediction)
	assert.InDelta(t, 0.8, r.Confidence, 1e-9)

	model.score = 0.1
	r, err = d.Analyze(ctx, Request{Kind: media.KindAudio, Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, LabelAuthentic, r.Prediction)
	assert.InDelta(t, 0.9, r.Confidence, 1e-9)

	_, err = d.Analyze(ctx, Request{Kind: media.KindImage})
	var aerr *AnalysisError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, media.KindImage, aerr.Kind)

	for _, kind := range []media.Kind{media.KindUnknown, "", "hologram"} {
		_, err = d.Analyze(ctx, Request{Kind: kind, Data: []byte{1}})
		assert.ErrorIs(t, err, ErrUnsupportedKind, "kind %q", kind)
	}

	model.err = errors.New("boom")
	_, err = d.Analyze(ctx, Request{Kind: media.KindImage, Data: []byte{1}})
	assert.ErrorContains(t, err, "boom")
}

func TestNewFallsBackToSynthetic(t *testing.T) {
	d := New(config.Detector{Mode: "learned", ModelPath: "/nonexistent/model.gob", Seed: 1})
	assert.Equal(t, "synthetic", d.Name())

	d = New(config.Detector{Mode: "synthetic"})
	assert.Equal(t, "synthetic", d.Name())
}

func TestObservedNotifiesOnSuccess(t *testing.T) {
	var seen []*PredictionResult
	obs := ObserverFunc(func(_ context.Context, r *PredictionResult) { seen = append(seen, r) })

	d := Observed(NewSyntheticDetector(1, NoiseUniform), obs)
	r, err := d.Analyze(context.Background(), Request{Kind: media.KindImage})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Same(t, r, seen[0])
	assert.Equal(t, "synthetic", d.Name())

	failing, _ := NewLearnedDetector(&fakeClassifier{available: true, trained: true}, 0.5)
	_, err = Observed(failing, obs).Analyze(context.Background(), Request{Kind: media.KindImage})
	assert.Error(t, err)
	assert.Len(t, seen, 1)
}

func TestMeanEvidence(t *testing.T) {
	r := &PredictionResult{Evidence: map[string]float64{"a": 0.2, "b": 0.4}}
	assert.InDelta(t, 0.3, r.MeanEvidence(), 1e-9)
	assert.Zero(t, (&PredictionResult{}).MeanEvidence())
}
