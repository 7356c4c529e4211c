package ml

import (
	"fmt"
	"math"
)

// KMeans clusters samples with Lloyd's algorithm.
type KMeans struct {
	k        int
	settings KMeansSettings
	src      source

	centroids [][]float64
	labels    []int
	fitted    bool
}

// NewKMeans returns an unfitted k-means engine.
func NewKMeans(k int, s KMeansSettings) (*KMeans, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: number of clusters %d must be at least 1: %w", k, ErrBadParameter)
	}
	if s.MaxIterations < 1 {
		return nil, fmt.Errorf("kmeans: max iterations %d must be at least 1: %w", s.MaxIterations, ErrBadParameter)
	}
	return &KMeans{k: k, settings: s, src: newSource(s.Seed)}, nil
}

func (km *KMeans) Kind() string { return KindKMeans }
func (km *KMeans) Fitted() bool { return km.fitted }

func (km *KMeans) Describe() string {
	state := "unfitted"
	if km.fitted {
		state = "fitted"
	}
	return fmt.Sprintf("kmeans k=%d %s", km.k, state)
}

func (km *KMeans) Clone() Engine {
	return &KMeans{
		k:         km.k,
		settings:  km.settings,
		src:       km.src.clone(),
		centroids: copyRows(km.centroids),
		labels:    append([]int(nil), km.labels...),
		fitted:    km.fitted,
	}
}

// Fit runs Lloyd's algorithm from a uniform random start within the
// per-feature range of X.
func (km *KMeans) Fit(X [][]float64) error {
	width, err := checkRows(KindKMeans, X, 0)
	if err != nil {
		return err
	}
	if len(X) < km.k {
		return fmt.Errorf("kmeans: %d samples for %d clusters: %w", len(X), km.k, ErrTooFewSamples)
	}

	centroids := km.initialCentroids(X, width)
	for iter := 0; iter < km.settings.MaxIterations; iter++ {
		labels := assign(X, centroids)
		next := updateCentroids(X, labels, centroids)
		moved := maxMovement(centroids, next)
		centroids = next
		if moved <= km.settings.Tolerance {
			break
		}
	}

	km.centroids = centroids
	km.labels = assign(X, centroids)
	km.fitted = true
	return nil
}

// Train refits on X.
func (km *KMeans) Train(X [][]float64) error {
	return km.Fit(X)
}

// FitPredict fits on X and returns each sample's cluster.
func (km *KMeans) FitPredict(X [][]float64) ([]int, error) {
	if err := km.Fit(X); err != nil {
		return nil, err
	}
	return append([]int(nil), km.labels...), nil
}

// Predict assigns samples to the nearest fitted centroid.
func (km *KMeans) Predict(X [][]float64) (Prediction, error) {
	if !km.fitted {
		return Prediction{}, notFitted(KindKMeans, "predict")
	}
	if _, err := checkRows(KindKMeans, X, len(km.centroids[0])); err != nil {
		return Prediction{}, err
	}
	labels := assign(X, km.centroids)
	rows := make([][]float64, len(labels))
	for i, l := range labels {
		rows[i] = []float64{float64(l)}
	}
	return Prediction{Rows: rows, Labels: true}, nil
}

// Centroids returns a copy of the fitted centroids.
func (km *KMeans) Centroids() ([][]float64, error) {
	if !km.fitted {
		return nil, notFitted(KindKMeans, "get_centroids")
	}
	return copyRows(km.centroids), nil
}

func (km *KMeans) initialCentroids(X [][]float64, width int) [][]float64 {
	lo := append([]float64(nil), X[0]...)
	hi := append([]float64(nil), X[0]...)
	for _, row := range X[1:] {
		for j, v := range row {
			lo[j] = math.Min(lo[j], v)
			hi[j] = math.Max(hi[j], v)
		}
	}

	centroids := make([][]float64, km.k)
	for c := range centroids {
		centroids[c] = make([]float64, width)
		for j := range centroids[c] {
			centroids[c][j] = km.src.uniform(lo[j], hi[j])
		}
	}
	return centroids
}

// assign labels every sample with its nearest centroid. Ties go to the
// lowest index.
func assign(X [][]float64, centroids [][]float64) []int {
	labels := make([]int, len(X))
	for i, x := range X {
		best := math.Inf(1)
		for c, centroid := range centroids {
			if d := distance(x, centroid); d < best {
				best = d
				labels[i] = c
			}
		}
	}
	return labels
}

// updateCentroids moves each centroid to the mean of its members. Empty
// clusters keep their previous centroid.
func updateCentroids(X [][]float64, labels []int, prev [][]float64) [][]float64 {
	width := len(prev[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, width)
	}
	for i, x := range X {
		c := labels[i]
		counts[c]++
		for j, v := range x {
			sums[c][j] += v
		}
	}

	next := make([][]float64, len(prev))
	for c := range next {
		if counts[c] == 0 {
			next[c] = append([]float64(nil), prev[c]...)
			continue
		}
		next[c] = make([]float64, width)
		for j := range next[c] {
			next[c][j] = sums[c][j] / float64(counts[c])
		}
	}
	return next
}

func maxMovement(a, b [][]float64) float64 {
	moved := 0.0
	for c := range a {
		moved = math.Max(moved, distance(a[c], b[c]))
	}
	return moved
}

func distance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
