package ml

import (
	"fmt"
	"math"
)

// NeuralNetwork is a fully connected regressor with tanh hidden layers and a
// linear output layer. Inputs and targets are standardized for training.
type NeuralNetwork struct {
	hidden   []int
	settings TrainingSettings
	src      source

	xScale, yScale scaler
	weights        [][][]float64 // per layer: out × in
	biases         [][]float64

	lossHistory []float64
	fitted      bool
}

// NewNeuralNetwork returns an unfitted network with the given hidden layer sizes.
func NewNeuralNetwork(hidden []int, s TrainingSettings) (*NeuralNetwork, error) {
	if len(hidden) == 0 {
		return nil, fmt.Errorf("neural_network: architecture needs at least one hidden layer: %w", ErrBadParameter)
	}
	for i, h := range hidden {
		if h < 1 {
			return nil, fmt.Errorf("neural_network: layer %d size %d must be at least 1: %w", i, h, ErrBadParameter)
		}
	}
	if err := s.validate(KindNeuralNetwork); err != nil {
		return nil, err
	}
	return &NeuralNetwork{
		hidden:   append([]int(nil), hidden...),
		settings: s,
		src:      newSource(s.Seed),
	}, nil
}

func (nn *NeuralNetwork) Kind() string { return KindNeuralNetwork }
func (nn *NeuralNetwork) Fitted() bool { return nn.fitted }

func (nn *NeuralNetwork) Describe() string {
	state := "unfitted"
	if nn.fitted {
		state = "fitted"
	}
	return fmt.Sprintf("neural_network hidden=%v %s", nn.hidden, state)
}

func (nn *NeuralNetwork) Clone() Engine {
	return &NeuralNetwork{
		hidden:      append([]int(nil), nn.hidden...),
		settings:    nn.settings,
		src:         nn.src.clone(),
		xScale:      nn.xScale.clone(),
		yScale:      nn.yScale.clone(),
		weights:     copyLayers(nn.weights),
		biases:      copyRows(nn.biases),
		lossHistory: append([]float64(nil), nn.lossHistory...),
		fitted:      nn.fitted,
	}
}

// Fit trains on X and target rows Y by per-sample SGD on MSE. The output
// layer is as wide as the rows of Y.
func (nn *NeuralNetwork) Fit(X, Y [][]float64) error {
	inDim, err := checkRows(KindNeuralNetwork, X, 0)
	if err != nil {
		return err
	}
	if len(X) != len(Y) {
		return fmt.Errorf("neural_network: %d samples, %d targets: %w", len(X), len(Y), ErrLengthMismatch)
	}
	outDim, err := checkRows(KindNeuralNetwork, Y, 0)
	if err != nil {
		return err
	}

	nn.xScale = fitScaler(X)
	nn.yScale = fitScaler(Y)
	Xs := nn.xScale.applyAll(X)
	Ys := nn.yScale.applyAll(Y)

	sizes := append(append([]int{inDim}, nn.hidden...), outDim)
	nn.weights = make([][][]float64, len(sizes)-1)
	nn.biases = make([][]float64, len(sizes)-1)
	for l := range nn.weights {
		nn.weights[l] = nn.src.xavier(sizes[l], sizes[l+1])
		nn.biases[l] = make([]float64, sizes[l+1])
	}
	nn.lossHistory = nil

	prev := math.Inf(1)
	for epoch := 0; epoch < nn.settings.MaxEpochs; epoch++ {
		total := 0.0
		for _, i := range nn.src.permutation(len(Xs)) {
			acts := nn.forward(Xs[i])
			total += mse(acts[len(acts)-1], Ys[i])
			nn.backward(acts, Ys[i])
		}

		avg := total / float64(len(Xs))
		nn.lossHistory = append(nn.lossHistory, avg)
		if converged(prev, avg, nn.settings.Tolerance) {
			break
		}
		prev = avg
	}

	nn.fitted = true
	return nil
}

// forward returns the activations of every layer, input first.
func (nn *NeuralNetwork) forward(x []float64) [][]float64 {
	acts := make([][]float64, 0, len(nn.weights)+1)
	acts = append(acts, x)
	last := len(nn.weights) - 1
	for l, w := range nn.weights {
		in := acts[l]
		out := make([]float64, len(w))
		for i := range out {
			v := nn.biases[l][i] + dot(w[i], in)
			if l < last {
				v = math.Tanh(v)
			}
			out[i] = v
		}
		acts = append(acts, out)
	}
	return acts
}

func (nn *NeuralNetwork) backward(acts [][]float64, target []float64) {
	lr := nn.settings.LearningRate
	last := len(nn.weights) - 1

	out := acts[len(acts)-1]
	delta := make([]float64, len(out))
	for i := range delta {
		delta[i] = out[i] - target[i]
	}

	for l := last; l >= 0; l-- {
		in := acts[l]
		w := nn.weights[l]

		var prevDelta []float64
		if l > 0 {
			prevDelta = make([]float64, len(in))
			for j := range prevDelta {
				sum := 0.0
				for i := range delta {
					sum += delta[i] * w[i][j]
				}
				prevDelta[j] = sum * (1 - in[j]*in[j])
			}
		}

		for i := range delta {
			for j := range in {
				w[i][j] -= lr * delta[i] * in[j]
			}
			nn.biases[l][i] -= lr * delta[i]
		}
		delta = prevDelta
	}
}

// Predict returns one output row per sample in the original target scale.
func (nn *NeuralNetwork) Predict(X [][]float64) (Prediction, error) {
	if !nn.fitted {
		return Prediction{}, notFitted(KindNeuralNetwork, "predict")
	}
	if _, err := checkRows(KindNeuralNetwork, X, len(nn.weights[0][0])); err != nil {
		return Prediction{}, err
	}
	rows := make([][]float64, len(X))
	for i, x := range X {
		acts := nn.forward(nn.xScale.apply(x))
		rows[i] = nn.yScale.invert(acts[len(acts)-1])
	}
	return Prediction{Rows: rows}, nil
}

// LossHistory returns the mean standardized MSE of each training epoch.
func (nn *NeuralNetwork) LossHistory() []float64 {
	return append([]float64(nil), nn.lossHistory...)
}
