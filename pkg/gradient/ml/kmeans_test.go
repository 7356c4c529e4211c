package ml_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/gradient/pkg/gradient/ml"
)

// Capability surface of each engine.
var (
	_ ml.Trainer          = (*ml.KMeans)(nil)
	_ ml.Clusterer        = (*ml.KMeans)(nil)
	_ ml.CentroidProvider = (*ml.KMeans)(nil)
	_ ml.Predictor        = (*ml.KMeans)(nil)

	_ ml.Trainer              = (*ml.Autoencoder)(nil)
	_ ml.Encoder              = (*ml.Autoencoder)(nil)
	_ ml.Decoder              = (*ml.Autoencoder)(nil)
	_ ml.Reconstructor        = (*ml.Autoencoder)(nil)
	_ ml.ReconstructionScorer = (*ml.Autoencoder)(nil)
	_ ml.LossReporter         = (*ml.Autoencoder)(nil)
	_ ml.WeightReporter       = (*ml.Autoencoder)(nil)

	_ ml.SupervisedFitter = (*ml.LinearRegression)(nil)
	_ ml.Predictor        = (*ml.LinearRegression)(nil)
	_ ml.SupervisedFitter = (*ml.MLPClassifier)(nil)
	_ ml.Predictor        = (*ml.MLPClassifier)(nil)
	_ ml.SupervisedFitter = (*ml.NeuralNetwork)(nil)
	_ ml.Predictor        = (*ml.NeuralNetwork)(nil)
)

// twoClusters has the second feature constant, so every random start lands
// on the line the points live on.
var twoClusters = [][]float64{
	{0, 5}, {0.2, 5}, {0.4, 5},
	{10, 5}, {10.2, 5}, {10.4, 5},
}

func newKMeans(t *testing.T, k int) *ml.KMeans {
	t.Helper()
	km, err := ml.NewKMeans(k, ml.DefaultSettings().KMeans)
	require.NoError(t, err)
	return km
}

func TestKMeans_SeparatesClusters(t *testing.T) {
	km := newKMeans(t, 2)
	labels, err := km.FitPredict(twoClusters)
	require.NoError(t, err)
	require.Len(t, labels, 6)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[3], labels[5])
	assert.NotEqual(t, labels[0], labels[3])

	centroids, err := km.Centroids()
	require.NoError(t, err)
	require.Len(t, centroids, 2)

	low, high := centroids[labels[0]], centroids[labels[3]]
	assert.InDelta(t, 0.2, low[0], 1e-9)
	assert.InDelta(t, 10.2, high[0], 1e-9)
	assert.InDelta(t, 5.0, low[1], 1e-9)
}

func TestKMeans_Deterministic(t *testing.T) {
	data := [][]float64{{1, 2}, {1.5, 1.8}, {5, 8}, {8, 8}, {1, 0.6}, {9, 11}, {8, 2}, {10, 2}, {9, 3}}

	a := newKMeans(t, 3)
	b := newKMeans(t, 3)
	la, err := a.FitPredict(data)
	require.NoError(t, err)
	lb, err := b.FitPredict(data)
	require.NoError(t, err)
	assert.Equal(t, la, lb)

	ca, _ := a.Centroids()
	cb, _ := b.Centroids()
	assert.Equal(t, ca, cb)
}

func TestKMeans_LabelsAreNearestCentroid(t *testing.T) {
	data := [][]float64{{1, 2}, {1.5, 1.8}, {5, 8}, {8, 8}, {1, 0.6}, {9, 11}, {8, 2}, {10, 2}, {9, 3}}
	km := newKMeans(t, 3)
	labels, err := km.FitPredict(data)
	require.NoError(t, err)
	centroids, err := km.Centroids()
	require.NoError(t, err)

	for i, x := range data {
		own := dist(x, centroids[labels[i]])
		for c := range centroids {
			assert.LessOrEqual(t, own, dist(x, centroids[c])+1e-12, "sample %d", i)
		}
	}

	pred, err := km.Predict(data)
	require.NoError(t, err)
	assert.True(t, pred.Labels)
	for i, row := range pred.Rows {
		assert.Equal(t, float64(labels[i]), row[0])
	}
}

func TestKMeans_Errors(t *testing.T) {
	_, err := ml.NewKMeans(0, ml.DefaultSettings().KMeans)
	assert.ErrorIs(t, err, ml.ErrBadParameter)

	km := newKMeans(t, 3)
	assert.ErrorIs(t, km.Fit(nil), ml.ErrEmptyInput)
	assert.ErrorIs(t, km.Fit([][]float64{{1}, {2}}), ml.ErrTooFewSamples)
	assert.ErrorIs(t, km.Fit([][]float64{{1, 2}, {3}, {4, 5}}), ml.ErrDimension)

	_, err = km.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ml.ErrNotFitted)
	_, err = km.Centroids()
	assert.ErrorIs(t, err, ml.ErrNotFitted)

	require.NoError(t, km.Train([][]float64{{1}, {2}, {3}}))
	_, err = km.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, ml.ErrDimension)
}

func TestKMeans_CloneIsIndependent(t *testing.T) {
	km := newKMeans(t, 2)
	require.NoError(t, km.Fit(twoClusters))

	clone := km.Clone().(*ml.KMeans)
	require.NoError(t, clone.Fit([][]float64{{100}, {200}}))

	orig, err := km.Centroids()
	require.NoError(t, err)
	assert.Len(t, orig[0], 2, "refitting the clone must not touch the original")

	centroids, _ := km.Centroids()
	centroids[0][0] = -1
	again, _ := km.Centroids()
	assert.NotEqual(t, -1.0, again[0][0], "Centroids must return a copy")
	assert.Contains(t, km.Describe(), "k=2 fitted")
}

func dist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math.Sqrt(sum)
}
