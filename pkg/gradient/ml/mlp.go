package ml

import (
	"fmt"
	"math"
	"sort"
)

// MLPClassifier is a one-hidden-layer perceptron with sigmoid hidden units
// and a softmax output over the distinct labels seen in training.
type MLPClassifier struct {
	hidden   int
	settings TrainingSettings
	src      source

	classes []float64
	scale   scaler
	w1      [][]float64 // hidden × features
	b1      []float64
	w2      [][]float64 // classes × hidden
	b2      []float64

	lossHistory []float64
	fitted      bool
}

// NewMLPClassifier returns an unfitted classifier with the given hidden width.
func NewMLPClassifier(hidden int, s TrainingSettings) (*MLPClassifier, error) {
	if hidden < 1 {
		return nil, fmt.Errorf("mlp_classifier: hidden size %d must be at least 1: %w", hidden, ErrBadParameter)
	}
	if err := s.validate(KindMLPClassifier); err != nil {
		return nil, err
	}
	return &MLPClassifier{hidden: hidden, settings: s, src: newSource(s.Seed)}, nil
}

func (m *MLPClassifier) Kind() string { return KindMLPClassifier }
func (m *MLPClassifier) Fitted() bool { return m.fitted }

func (m *MLPClassifier) Describe() string {
	if !m.fitted {
		return fmt.Sprintf("mlp_classifier hidden=%d unfitted", m.hidden)
	}
	return fmt.Sprintf("mlp_classifier hidden=%d classes=%v", m.hidden, m.Classes())
}

func (m *MLPClassifier) Clone() Engine {
	return &MLPClassifier{
		hidden:      m.hidden,
		settings:    m.settings,
		src:         m.src.clone(),
		classes:     append([]float64(nil), m.classes...),
		scale:       m.scale.clone(),
		w1:          copyRows(m.w1),
		b1:          append([]float64(nil), m.b1...),
		w2:          copyRows(m.w2),
		b2:          append([]float64(nil), m.b2...),
		lossHistory: append([]float64(nil), m.lossHistory...),
		fitted:      m.fitted,
	}
}

// Classes returns the sorted distinct labels learned by Fit.
func (m *MLPClassifier) Classes() []float64 {
	return append([]float64(nil), m.classes...)
}

// Fit trains on X and single-value label rows Y with per-sample SGD on
// cross-entropy.
func (m *MLPClassifier) Fit(X, Y [][]float64) error {
	width, err := checkRows(KindMLPClassifier, X, 0)
	if err != nil {
		return err
	}
	if len(X) != len(Y) {
		return fmt.Errorf("mlp_classifier: %d samples, %d labels: %w", len(X), len(Y), ErrLengthMismatch)
	}
	if _, err := checkRows(KindMLPClassifier, Y, 1); err != nil {
		return err
	}

	m.classes = distinct(Y)
	index := make(map[float64]int, len(m.classes))
	for i, c := range m.classes {
		index[c] = i
	}

	m.scale = fitScaler(X)
	Z := m.scale.applyAll(X)

	m.w1 = m.src.xavier(width, m.hidden)
	m.b1 = make([]float64, m.hidden)
	m.w2 = m.src.xavier(m.hidden, len(m.classes))
	m.b2 = make([]float64, len(m.classes))
	m.lossHistory = nil

	lr := m.settings.LearningRate
	prev := math.Inf(1)
	for epoch := 0; epoch < m.settings.MaxEpochs; epoch++ {
		total := 0.0
		for _, i := range m.src.permutation(len(Z)) {
			x := Z[i]
			target := index[Y[i][0]]
			h, p := m.forward(x)
			total -= math.Log(math.Max(p[target], 1e-12))

			// softmax + cross-entropy gradient
			dOut := append([]float64(nil), p...)
			dOut[target] -= 1

			dHidden := make([]float64, m.hidden)
			for j := range dHidden {
				sum := 0.0
				for c := range dOut {
					sum += dOut[c] * m.w2[c][j]
				}
				dHidden[j] = sum * h[j] * (1 - h[j])
			}

			for c := range dOut {
				for j := range h {
					m.w2[c][j] -= lr * dOut[c] * h[j]
				}
				m.b2[c] -= lr * dOut[c]
			}
			for j := range dHidden {
				for k := range x {
					m.w1[j][k] -= lr * dHidden[j] * x[k]
				}
				m.b1[j] -= lr * dHidden[j]
			}
		}

		avg := total / float64(len(Z))
		m.lossHistory = append(m.lossHistory, avg)
		if converged(prev, avg, m.settings.Tolerance) {
			break
		}
		prev = avg
	}

	m.fitted = true
	return nil
}

func (m *MLPClassifier) forward(x []float64) (hidden, probs []float64) {
	hidden = make([]float64, m.hidden)
	for j := range hidden {
		hidden[j] = sigmoid(m.b1[j] + dot(m.w1[j], x))
	}
	logits := make([]float64, len(m.classes))
	for c := range logits {
		logits[c] = m.b2[c] + dot(m.w2[c], hidden)
	}
	return hidden, softmax(logits)
}

// Predict returns the most probable label for each sample.
func (m *MLPClassifier) Predict(X [][]float64) (Prediction, error) {
	if !m.fitted {
		return Prediction{}, notFitted(KindMLPClassifier, "predict")
	}
	if _, err := checkRows(KindMLPClassifier, X, len(m.w1[0])); err != nil {
		return Prediction{}, err
	}
	rows := make([][]float64, len(X))
	for i, x := range X {
		_, p := m.forward(m.scale.apply(x))
		best := 0
		for c := range p {
			if p[c] > p[best] {
				best = c
			}
		}
		rows[i] = []float64{m.classes[best]}
	}
	return Prediction{Rows: rows, Labels: true}, nil
}

// LossHistory returns the mean cross-entropy of each training epoch.
func (m *MLPClassifier) LossHistory() []float64 {
	return append([]float64(nil), m.lossHistory...)
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, v)
	}
	out := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func distinct(Y [][]float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, row := range Y {
		if !seen[row[0]] {
			seen[row[0]] = true
			out = append(out, row[0])
		}
	}
	sort.Float64s(out)
	return out
}
