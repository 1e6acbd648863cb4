//go:build cgo_gorgonia

package nn

import (
	"path/filepath"
	"testing"
)

func smallConfig() ClassifierConfig {
	return ClassifierConfig{InputDim: 4, HiddenDim: 8, NumLayers: 2, LearningRate: 0.01}
}

func TestNewClassifier(t *testing.T) {
	model := NewClassifier(DefaultClassifierConfig())

	if !model.Available() {
		t.Error("Gorgonia classifier should be available")
	}
	if model.IsTrained() {
		t.Error("New model should not be trained")
	}
	if model.InputDim() != 64 {
		t.Errorf("Expected InputDim=64, got %d", model.InputDim())
	}
}

func TestPredictRange(t *testing.T) {
	model := NewClassifier(smallConfig())

	score, err := model.Predict([]float64{0.1, 0.2, 0.3, 0.4})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if score < 0 || score > 1 {
		t.Errorf("Expected sigmoid output in [0,1], got %f", score)
	}

	// shorter input is padded
	if _, err := model.Predict([]float64{1}); err != nil {
		t.Fatalf("Predict with short input failed: %v", err)
	}
}

func TestTrainMarksTrained(t *testing.T) {
	model := NewClassifier(smallConfig())

	inputs := [][]float64{{1, 0, 0, 0}, {0, 0, 0, 1}}
	if err := model.Train(inputs, []float64{0, 1}, 2); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if !model.IsTrained() {
		t.Error("Model should be trained after Train")
	}
	if err := model.Train(inputs, []float64{1}, 1); err == nil {
		t.Error("Expected error for mismatched labels")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.gob")

	model := NewClassifier(smallConfig())
	if err := model.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := NewClassifier(DefaultClassifierConfig())
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.InputDim() != 4 {
		t.Errorf("Loaded model inputDim=%d, expected 4", loaded.InputDim())
	}

	in := []float64{0.5, 0.5, 0.5, 0.5}
	a, _ := model.Predict(in)
	b, _ := loaded.Predict(in)
	if a != b {
		t.Errorf("Loaded model predicts %f, original %f", b, a)
	}
}

func TestPadOrTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		length   int
		expected int
	}{
		{"exact", []float64{1, 2, 3}, 3, 3},
		{"pad", []float64{1, 2}, 5, 5},
		{"truncate", []float64{1, 2, 3, 4, 5}, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padOrTruncate(tt.input, tt.length)
			if len(result) != tt.expected {
				t.Errorf("Expected length %d, got %d", tt.expected, len(result))
			}
		})
	}
}
