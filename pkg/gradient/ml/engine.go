// Package ml contains the model engines behind Gradient's machine-learning
// built-ins: k-means clustering, an autoencoder, linear regression, a
// multilayer perceptron classifier and a configurable neural network.
//
// Every engine is a self-contained value: hyperparameters are fixed at
// construction, trained parameters are set by fitting, and all inference
// operations fail with ErrNotFitted until then. Engines own their random
// source, so a fixed seed gives identical results on identical data.
//
// Data crosses the package boundary as [][]float64, one row per sample.
// Callers decide how a flat list maps onto rows.
package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Sentinel errors.
var (
	ErrNotFitted      = errors.New("model is not fitted")
	ErrEmptyInput     = errors.New("input data cannot be empty")
	ErrTooFewSamples  = errors.New("too few samples")
	ErrLengthMismatch = errors.New("X and y have different lengths")
	ErrDimension      = errors.New("feature dimension mismatch")
	ErrBadParameter   = errors.New("invalid parameter")
)

// Engine kinds.
const (
	KindKMeans           = "kmeans"
	KindAutoencoder      = "autoencoder"
	KindLinearRegression = "linear_regression"
	KindMLPClassifier    = "mlp_classifier"
	KindNeuralNetwork    = "neural_network"
)

// Engine is the surface shared by every model.
type Engine interface {
	Kind() string
	Fitted() bool
	// Clone returns a deep copy, including the random source state.
	Clone() Engine
	Describe() string
}

// Prediction holds one output row per input sample.
type Prediction struct {
	Rows [][]float64
	// Labels is set when outputs are class labels or cluster indices.
	Labels bool
}

// Capabilities. An engine implements the subset that applies to it.
type (
	Predictor interface {
		Predict(X [][]float64) (Prediction, error)
	}
	SupervisedFitter interface {
		Fit(X, Y [][]float64) error
	}
	Trainer interface {
		Train(X [][]float64) error
	}
	Clusterer interface {
		FitPredict(X [][]float64) ([]int, error)
	}
	CentroidProvider interface {
		Centroids() ([][]float64, error)
	}
	Encoder interface {
		Encode(X [][]float64) ([][]float64, error)
	}
	Decoder interface {
		Decode(Z [][]float64) ([][]float64, error)
	}
	Reconstructor interface {
		Reconstruct(X [][]float64) ([][]float64, error)
	}
	ReconstructionScorer interface {
		ReconstructionError(X [][]float64) (float64, error)
	}
	LossReporter interface {
		LossHistory() []float64
	}
	WeightReporter interface {
		EncodingWeights() ([][]float64, error)
	}
)

// TrainingSettings are the hyperparameters of the gradient-descent engines.
type TrainingSettings struct {
	LearningRate float64
	MaxEpochs    int
	Tolerance    float64
	Seed         int64
}

// KMeansSettings are the hyperparameters of KMeans.
type KMeansSettings struct {
	MaxIterations int
	Tolerance     float64
	Seed          int64
}

// Settings groups the hyperparameters of all engines.
type Settings struct {
	KMeans           KMeansSettings
	Autoencoder      TrainingSettings
	LinearRegression TrainingSettings
	MLPClassifier    TrainingSettings
	NeuralNetwork    TrainingSettings
}

// DefaultSettings returns the stock hyperparameters.
func DefaultSettings() Settings {
	return Settings{
		KMeans:           KMeansSettings{MaxIterations: 100, Tolerance: 1e-6, Seed: 42},
		Autoencoder:      TrainingSettings{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-6, Seed: 42},
		LinearRegression: TrainingSettings{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-9, Seed: 42},
		MLPClassifier:    TrainingSettings{LearningRate: 0.1, MaxEpochs: 500, Tolerance: 1e-6, Seed: 42},
		NeuralNetwork:    TrainingSettings{LearningRate: 0.01, MaxEpochs: 1000, Tolerance: 1e-7, Seed: 42},
	}
}

func (s TrainingSettings) validate(kind string) error {
	if s.LearningRate <= 0 || math.IsNaN(s.LearningRate) {
		return fmt.Errorf("%s: learning rate %v must be positive: %w", kind, s.LearningRate, ErrBadParameter)
	}
	if s.MaxEpochs < 1 {
		return fmt.Errorf("%s: max epochs %d must be at least 1: %w", kind, s.MaxEpochs, ErrBadParameter)
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("%s: tolerance %v must not be negative: %w", kind, s.Tolerance, ErrBadParameter)
	}
	return nil
}

// source is a seeded PCG generator that can be copied with its state.
type source struct {
	pcg *rand.PCG
	rng *rand.Rand
}

func newSource(seed int64) source {
	pcg := rand.NewPCG(uint64(seed), 0)
	return source{pcg: pcg, rng: rand.New(pcg)}
}

func (s source) clone() source {
	pcg := *s.pcg
	return source{pcg: &pcg, rng: rand.New(&pcg)}
}

func (s source) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// xavier returns a fanOut×fanIn weight matrix drawn from
// U(-sqrt(6/(fanIn+fanOut)), +sqrt(6/(fanIn+fanOut))).
func (s source) xavier(fanIn, fanOut int) [][]float64 {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	w := make([][]float64, fanOut)
	for i := range w {
		w[i] = make([]float64, fanIn)
		for j := range w[i] {
			w[i][j] = s.uniform(-limit, limit)
		}
	}
	return w
}

func (s source) permutation(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// checkRows verifies that X is non-empty and rectangular with the given
// width (any width when want <= 0). It returns the width.
func checkRows(kind string, X [][]float64, want int) (int, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return 0, fmt.Errorf("%s: %w", kind, ErrEmptyInput)
	}
	width := len(X[0])
	if want > 0 {
		width = want
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%s: sample %d has %d features, want %d: %w", kind, i, len(row), width, ErrDimension)
		}
	}
	return width, nil
}

func notFitted(kind, op string) error {
	return fmt.Errorf("%s: %s: %w", kind, op, ErrNotFitted)
}

func copyRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

func copyLayers(layers [][][]float64) [][][]float64 {
	out := make([][][]float64, len(layers))
	for i, l := range layers {
		out[i] = copyRows(l)
	}
	return out
}

func sigmoid(x float64) float64 {
	x = math.Max(-250, math.Min(250, x))
	return 1.0 / (1.0 + math.Exp(-x))
}

// scaler standardizes columns to zero mean and unit variance. Constant
// columns keep a unit scale.
type scaler struct {
	mean, std []float64
}

func fitScaler(rows [][]float64) scaler {
	width := len(rows[0])
	s := scaler{mean: make([]float64, width), std: make([]float64, width)}
	n := float64(len(rows))
	for _, r := range rows {
		for j, v := range r {
			s.mean[j] += v / n
		}
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - s.mean[j]
			s.std[j] += d * d / n
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j])
		if s.std[j] < 1e-12 {
			s.std[j] = 1
		}
	}
	return s
}

func (s scaler) apply(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

func (s scaler) applyAll(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.apply(r)
	}
	return out
}

func (s scaler) invert(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = v*s.std[j] + s.mean[j]
	}
	return out
}

func (s scaler) clone() scaler {
	return scaler{
		mean: append([]float64(nil), s.mean...),
		std:  append([]float64(nil), s.std...),
	}
}

func converged(prev, cur, tol float64) bool {
	return math.Abs(prev-cur) < tol
}
