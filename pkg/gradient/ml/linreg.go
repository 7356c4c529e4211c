package ml

import (
	"fmt"
	"math"
	"strings"
)

// LinearRegression fits y = w·x + b by full-batch gradient descent on
// standardized features. Weights are reported in raw feature space.
type LinearRegression struct {
	settings TrainingSettings

	weights     []float64
	bias        float64
	lossHistory []float64
	fitted      bool
}

// NewLinearRegression returns an unfitted linear regression engine.
func NewLinearRegression(s TrainingSettings) (*LinearRegression, error) {
	if err := s.validate(KindLinearRegression); err != nil {
		return nil, err
	}
	return &LinearRegression{settings: s}, nil
}

func (lr *LinearRegression) Kind() string { return KindLinearRegression }
func (lr *LinearRegression) Fitted() bool { return lr.fitted }

func (lr *LinearRegression) Describe() string {
	weights, bias, err := lr.Coefficients()
	if err != nil {
		return "linear_regression unfitted"
	}
	terms := make([]string, len(weights))
	for i, w := range weights {
		terms[i] = fmt.Sprintf("%.4g*x%d", w, i)
	}
	return fmt.Sprintf("linear_regression y = %s + %.4g", strings.Join(terms, " + "), bias)
}

func (lr *LinearRegression) Clone() Engine {
	return &LinearRegression{
		settings:    lr.settings,
		weights:     append([]float64(nil), lr.weights...),
		bias:        lr.bias,
		lossHistory: append([]float64(nil), lr.lossHistory...),
		fitted:      lr.fitted,
	}
}

// Coefficients returns the raw-space weights and intercept.
func (lr *LinearRegression) Coefficients() ([]float64, float64, error) {
	if !lr.fitted {
		return nil, 0, notFitted(KindLinearRegression, "coefficients")
	}
	return append([]float64(nil), lr.weights...), lr.bias, nil
}

// Fit trains on X (one row per sample) and Y (one single-value row per sample).
func (lr *LinearRegression) Fit(X, Y [][]float64) error {
	width, err := checkRows(KindLinearRegression, X, 0)
	if err != nil {
		return err
	}
	if len(X) != len(Y) {
		return fmt.Errorf("linear_regression: %d samples, %d targets: %w", len(X), len(Y), ErrLengthMismatch)
	}
	if _, err := checkRows(KindLinearRegression, Y, 1); err != nil {
		return err
	}

	sc := fitScaler(X)
	Z := sc.applyAll(X)
	n := float64(len(Z))

	w := make([]float64, width)
	b := 0.0
	history := make([]float64, 0, lr.settings.MaxEpochs)
	prev := math.Inf(1)

	for epoch := 0; epoch < lr.settings.MaxEpochs; epoch++ {
		gradW := make([]float64, width)
		gradB := 0.0
		loss := 0.0
		for i, z := range Z {
			e := dot(w, z) + b - Y[i][0]
			loss += e * e
			for j, v := range z {
				gradW[j] += 2 * e * v / n
			}
			gradB += 2 * e / n
		}
		loss /= n
		history = append(history, loss)

		for j := range w {
			w[j] -= lr.settings.LearningRate * gradW[j]
		}
		b -= lr.settings.LearningRate * gradB

		if converged(prev, loss, lr.settings.Tolerance) {
			break
		}
		prev = loss
	}

	// back to raw feature space: w_raw = w/std, b_raw = b - Σ w·mean/std
	lr.weights = make([]float64, width)
	lr.bias = b
	for j := range w {
		lr.weights[j] = w[j] / sc.std[j]
		lr.bias -= w[j] * sc.mean[j] / sc.std[j]
	}
	lr.lossHistory = history
	lr.fitted = true
	return nil
}

// Predict returns one single-value row per sample.
func (lr *LinearRegression) Predict(X [][]float64) (Prediction, error) {
	if !lr.fitted {
		return Prediction{}, notFitted(KindLinearRegression, "predict")
	}
	if _, err := checkRows(KindLinearRegression, X, len(lr.weights)); err != nil {
		return Prediction{}, err
	}
	rows := make([][]float64, len(X))
	for i, x := range X {
		rows[i] = []float64{dot(lr.weights, x) + lr.bias}
	}
	return Prediction{Rows: rows}, nil
}

// LossHistory returns the training MSE of each epoch.
func (lr *LinearRegression) LossHistory() []float64 {
	return append([]float64(nil), lr.lossHistory...)
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
