package ml_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/gradient/pkg/gradient/ml"
)

var (
	separated       = [][]float64{{0, 0}, {0, 1}, {1, 0}, {10, 10}, {10, 11}, {11, 10}}
	separatedLabels = column(0, 0, 0, 1, 1, 1)
)

func TestMLPClassifier_SeparatesClasses(t *testing.T) {
	m, err := ml.NewMLPClassifier(3, ml.DefaultSettings().MLPClassifier)
	require.NoError(t, err)
	require.NoError(t, m.Fit(separated, separatedLabels))
	assert.Equal(t, []float64{0, 1}, m.Classes())

	pred, err := m.Predict(separated)
	require.NoError(t, err)
	assert.True(t, pred.Labels)
	for i, row := range pred.Rows {
		assert.Equal(t, separatedLabels[i][0], row[0], "sample %d", i)
	}

	pred, err = m.Predict([][]float64{{0.5, 0.5}, {10.5, 10.5}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.Rows[0][0])
	assert.Equal(t, 1.0, pred.Rows[1][0])

	history := m.LossHistory()
	require.NotEmpty(t, history)
	assert.Less(t, history[len(history)-1], history[0])
}

func TestMLPClassifier_KeepsLabelValues(t *testing.T) {
	m, err := ml.NewMLPClassifier(4, ml.DefaultSettings().MLPClassifier)
	require.NoError(t, err)
	require.NoError(t, m.Fit(separated, column(7, 7, 7, -2, -2, -2)))
	assert.Equal(t, []float64{-2, 7}, m.Classes())
	assert.Equal(t, "mlp_classifier hidden=4 classes=[-2 7]", m.Describe())

	pred, err := m.Predict([][]float64{{0, 0}, {11, 11}})
	require.NoError(t, err)
	assert.Equal(t, 7.0, pred.Rows[0][0])
	assert.Equal(t, -2.0, pred.Rows[1][0])
}

func TestMLPClassifier_Errors(t *testing.T) {
	_, err := ml.NewMLPClassifier(0, ml.DefaultSettings().MLPClassifier)
	assert.ErrorIs(t, err, ml.ErrBadParameter)

	m, err := ml.NewMLPClassifier(2, ml.DefaultSettings().MLPClassifier)
	require.NoError(t, err)
	_, err = m.Predict(separated)
	assert.ErrorIs(t, err, ml.ErrNotFitted)
	assert.Contains(t, m.Describe(), "unfitted")

	assert.ErrorIs(t, m.Fit(separated, column(0, 1)), ml.ErrLengthMismatch)
	require.NoError(t, m.Fit(separated, separatedLabels))
	_, err = m.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ml.ErrDimension)
}

func TestMLPClassifier_Deterministic(t *testing.T) {
	a, _ := ml.NewMLPClassifier(3, ml.DefaultSettings().MLPClassifier)
	b, _ := ml.NewMLPClassifier(3, ml.DefaultSettings().MLPClassifier)
	require.NoError(t, a.Fit(separated, separatedLabels))
	require.NoError(t, b.Fit(separated, separatedLabels))
	assert.Equal(t, a.LossHistory(), b.LossHistory())
}
