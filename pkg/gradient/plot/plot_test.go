package plot_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambeau/gradient/pkg/gradient/plot"
)

func newPlotter(t *testing.T, locale string) *plot.Plotter {
	t.Helper()
	p, err := plot.New(plot.Options{Width: 10, Height: 5, Bins: 2, Locale: locale})
	require.NoError(t, err)
	return p
}

func TestPlotLayout(t *testing.T) {
	p := newPlotter(t, "en")
	out, err := p.Plot([]float64{1, 2, 3})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "3 |         *", lines[0])
	assert.Equal(t, "1 |*", lines[4])
	assert.Equal(t, "  +----------", lines[5])
	assert.Equal(t, "   0        2", lines[6])
	assert.Equal(t, 3, strings.Count(out, "*"))
}

func TestScatter(t *testing.T) {
	p := newPlotter(t, "en")
	out, err := p.Scatter([]float64{0, 5, 10}, []float64{10, 0, 10})
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "o"))

	_, err = p.Scatter([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, plot.ErrLengthMismatch)
}

func TestConstantSeries(t *testing.T) {
	p := newPlotter(t, "en")
	out, err := p.Plot([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "*"))
	assert.Contains(t, out, "5 |")
	assert.Contains(t, out, "3 |")
}

func TestHistogram(t *testing.T) {
	p := newPlotter(t, "en")
	out, err := p.Histogram([]float64{1, 1, 2, 3})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[1, 2) |########## 2", lines[0])
	assert.Equal(t, "[2, 3) |########## 2", lines[1])

	out, err = p.Histogram([]float64{0, 0, 0, 10})
	require.NoError(t, err)
	assert.Contains(t, out, "[5, 10) |### 1")
}

func TestLocaleLabels(t *testing.T) {
	series := []float64{0, 1234.5}

	out, err := newPlotter(t, "en").Plot(series)
	require.NoError(t, err)
	assert.Contains(t, out, "1,234.5")

	out, err = newPlotter(t, "de").Plot(series)
	require.NoError(t, err)
	assert.Contains(t, out, "1.234,5")
}

func TestErrors(t *testing.T) {
	p := newPlotter(t, "en")

	_, err := p.Plot(nil)
	assert.ErrorIs(t, err, plot.ErrEmpty)

	_, err = p.Histogram([]float64{1, math.NaN()})
	assert.ErrorIs(t, err, plot.ErrNotFinite)

	for _, opts := range []plot.Options{
		{Width: 1, Height: 5, Bins: 2},
		{Width: 10, Height: 5, Bins: 0},
		{Width: 10, Height: 5, Bins: 2, Locale: "not a locale!"},
	} {
		_, err := plot.New(opts)
		assert.ErrorIs(t, err, plot.ErrBadOption)
	}

	p, err = plot.New(plot.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 60, p.Options().Width)
}
