//go:build cgo_gorgonia

package nn

import (
	"encoding/gob"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"sync"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Classifier is a small feed-forward network that scores a media feature
// vector. The output is the probability that the media is manipulated.
type Classifier struct {
	g *gorgonia.ExprGraph

	inputDim  int
	hiddenDim int
	numLayers int

	// Weights are kept as plain slices so they survive graph rebuilds
	// and can be persisted with gob.
	weights [][]float64
	biases  [][]float64

	learningRate float64
	trained      bool
	mu           sync.RWMutex
}

// ClassifierConfig holds model configuration
type ClassifierConfig struct {
	InputDim     int
	HiddenDim    int
	NumLayers    int
	LearningRate float64
}

// DefaultClassifierConfig returns sensible defaults
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		InputDim:     64,
		HiddenDim:    32,
		NumLayers:    3,
		LearningRate: 0.001,
	}
}

// NewClassifier creates an untrained classifier with Xavier-initialised weights
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.NumLayers < 2 {
		cfg.NumLayers = 2
	}
	m := &Classifier{
		inputDim:     cfg.InputDim,
		hiddenDim:    cfg.HiddenDim,
		numLayers:    cfg.NumLayers,
		learningRate: cfg.LearningRate,
	}
	m.initWeights()
	return m
}

func (m *Classifier) layerShape(i int) (int, int) {
	rows, cols := m.hiddenDim, m.hiddenDim
	if i == 0 {
		rows = m.inputDim
	}
	if i == m.numLayers-1 {
		cols = 1
	}
	return rows, cols
}

func (m *Classifier) initWeights() {
	m.weights = make([][]float64, m.numLayers)
	m.biases = make([][]float64, m.numLayers)
	for i := 0; i < m.numLayers; i++ {
		rows, cols := m.layerShape(i)
		scale := math.Sqrt(2.0 / float64(rows+cols))
		w := make([]float64, rows*cols)
		for j := range w {
			w[j] = (rand.Float64()*2 - 1) * scale
		}
		m.weights[i] = w
		m.biases[i] = make([]float64, cols)
	}
}

// build constructs a fresh expression graph for one input vector and
// returns the sigmoid output node along with the learnable nodes.
func (m *Classifier) build(input []float64) (*gorgonia.Node, gorgonia.Nodes, error) {
	m.g = gorgonia.NewGraph()

	x := gorgonia.NewMatrix(m.g, tensor.Float64,
		gorgonia.WithShape(1, m.inputDim),
		gorgonia.WithName("input"),
		gorgonia.WithValue(tensor.New(
			tensor.WithShape(1, m.inputDim),
			tensor.WithBacking(padOrTruncate(input, m.inputDim)),
		)),
	)

	learnables := make(gorgonia.Nodes, 0, m.numLayers*2)
	hidden := x
	for i := 0; i < m.numLayers; i++ {
		rows, cols := m.layerShape(i)
		w := gorgonia.NewMatrix(m.g, tensor.Float64,
			gorgonia.WithShape(rows, cols),
			gorgonia.WithName(fmt.Sprintf("w%d", i)),
			gorgonia.WithValue(tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(cloneSlice(m.weights[i])))),
		)
		b := gorgonia.NewVector(m.g, tensor.Float64,
			gorgonia.WithShape(cols),
			gorgonia.WithName(fmt.Sprintf("b%d", i)),
			gorgonia.WithValue(tensor.New(tensor.WithShape(cols), tensor.WithBacking(cloneSlice(m.biases[i])))),
		)
		learnables = append(learnables, w, b)

		var err error
		if hidden, err = gorgonia.Mul(hidden, w); err != nil {
			return nil, nil, fmt.Errorf("layer %d mul: %w", i, err)
		}
		if hidden, err = gorgonia.BroadcastAdd(hidden, b, nil, []byte{0}); err != nil {
			return nil, nil, fmt.Errorf("layer %d bias: %w", i, err)
		}
		if i < m.numLayers-1 {
			if hidden, err = gorgonia.Rectify(hidden); err != nil {
				return nil, nil, fmt.Errorf("layer %d relu: %w", i, err)
			}
		}
	}

	out, err := gorgonia.Sigmoid(hidden)
	if err != nil {
		return nil, nil, fmt.Errorf("sigmoid: %w", err)
	}
	return out, learnables, nil
}

// Available reports whether a real network backs this classifier
func (m *Classifier) Available() bool {
	return true
}

// InputDim returns the expected feature vector length
func (m *Classifier) InputDim() int {
	return m.inputDim
}

// Predict returns the manipulation probability for a feature vector
func (m *Classifier) Predict(features []float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out, _, err := m.build(features)
	if err != nil {
		return 0, err
	}

	vm := gorgonia.NewTapeMachine(m.g)
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return 0, fmt.Errorf("vm run failed: %w", err)
	}

	data, ok := out.Value().Data().([]float64)
	if !ok || len(data) == 0 {
		return 0, fmt.Errorf("no output value")
	}
	return data[0], nil
}

// Train fits the classifier to labelled feature vectors (1 = deepfake)
func (m *Classifier) Train(inputs [][]float64, labels []float64, epochs int) error {
	if len(inputs) != len(labels) {
		return fmt.Errorf("got %d inputs but %d labels", len(inputs), len(labels))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	solver := gorgonia.NewVanillaSolver(gorgonia.WithLearnRate(m.learningRate))

	for epoch := 0; epoch < epochs; epoch++ {
		totalLoss := 0.0

		for i := range inputs {
			out, learnables, err := m.build(inputs[i])
			if err != nil {
				return fmt.Errorf("forward failed: %w", err)
			}

			target := gorgonia.NewScalar(m.g, tensor.Float64,
				gorgonia.WithName("target"),
				gorgonia.WithValue(labels[i]),
			)
			diff, err := gorgonia.Sub(out, target)
			if err != nil {
				return err
			}
			sq, err := gorgonia.Square(diff)
			if err != nil {
				return err
			}
			loss, err := gorgonia.Mean(sq)
			if err != nil {
				return err
			}
			if _, err := gorgonia.Grad(loss, learnables...); err != nil {
				return fmt.Errorf("gradient failed: %w", err)
			}

			vm := gorgonia.NewTapeMachine(m.g, gorgonia.BindDualValues(learnables...))
			if err := vm.RunAll(); err != nil {
				vm.Close()
				return fmt.Errorf("vm run failed: %w", err)
			}
			if scalar, ok := loss.Value().Data().(float64); ok {
				totalLoss += scalar
			}
			if err := solver.Step(gorgonia.NodesToValueGrads(learnables)); err != nil {
				vm.Close()
				return fmt.Errorf("solver step failed: %w", err)
			}
			vm.Close()

			for l := 0; l < m.numLayers; l++ {
				m.weights[l] = cloneSlice(learnables[2*l].Value().Data().([]float64))
				m.biases[l] = cloneSlice(learnables[2*l+1].Value().Data().([]float64))
			}
		}

		if epoch%10 == 0 {
			log.Printf("Classifier epoch %d, loss: %.6f", epoch, totalLoss/float64(len(inputs)))
		}
	}

	m.trained = true
	return nil
}

// IsTrained returns whether the model has been trained or loaded
func (m *Classifier) IsTrained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// GetConfig returns the model configuration
func (m *Classifier) GetConfig() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"available":  true,
		"input_dim":  m.inputDim,
		"hidden_dim": m.hiddenDim,
		"num_layers": m.numLayers,
		"trained":    m.trained,
	}
}

type snapshot struct {
	InputDim  int
	HiddenDim int
	NumLayers int
	Weights   [][]float64
	Biases    [][]float64
	Trained   bool
}

// Save writes architecture and weights to disk
func (m *Classifier) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewEncoder(f).Encode(snapshot{
		InputDim:  m.inputDim,
		HiddenDim: m.hiddenDim,
		NumLayers: m.numLayers,
		Weights:   m.weights,
		Biases:    m.biases,
		Trained:   m.trained,
	})
}

// Load replaces architecture and weights with those stored at path
func (m *Classifier) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var data snapshot
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return err
	}
	if len(data.Weights) != data.NumLayers || len(data.Biases) != data.NumLayers {
		return fmt.Errorf("corrupt model: %d layers but %d weight sets", data.NumLayers, len(data.Weights))
	}

	m.inputDim = data.InputDim
	m.hiddenDim = data.HiddenDim
	m.numLayers = data.NumLayers
	m.weights = data.Weights
	m.biases = data.Biases
	m.trained = data.Trained
	return nil
}

// padOrTruncate ensures a slice is exactly the right length
func padOrTruncate(data []float64, length int) []float64 {
	if len(data) == length {
		return data
	}
	result := make([]float64, length)
	copy(result, data)
	return result
}

func cloneSlice(data []float64) []float64 {
	return append([]float64(nil), data...)
}
