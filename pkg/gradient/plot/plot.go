// Package plot renders plot, scatter and histogram calls as text charts.
// Axis and bin labels are formatted for the configured locale.
package plot

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	ErrEmpty          = errors.New("nothing to plot")
	ErrLengthMismatch = errors.New("x and y have different lengths")
	ErrNotFinite      = errors.New("values must be finite")
	ErrBadOption      = errors.New("invalid plot option")
)

// Options size the charts.
type Options struct {
	Width  int    // plot area columns
	Height int    // plot area rows
	Bins   int    // histogram bins
	Locale string // BCP 47 tag for labels
}

// DefaultOptions returns the stock chart size.
func DefaultOptions() Options {
	return Options{Width: 60, Height: 15, Bins: 10, Locale: "en"}
}

// Plotter draws charts with fixed options.
type Plotter struct {
	opts    Options
	printer *message.Printer
}

// New validates opts and creates a Plotter.
func New(opts Options) (*Plotter, error) {
	if opts.Width < 2 || opts.Height < 2 {
		return nil, fmt.Errorf("chart must be at least 2x2, got %dx%d: %w", opts.Width, opts.Height, ErrBadOption)
	}
	if opts.Bins < 1 {
		return nil, fmt.Errorf("bins must be positive, got %d: %w", opts.Bins, ErrBadOption)
	}
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", opts.Locale, ErrBadOption)
	}
	return &Plotter{opts: opts, printer: message.NewPrinter(tag)}, nil
}

// Options returns the options the Plotter was built with.
func (p *Plotter) Options() Options { return p.opts }

// label formats v with at most two fraction digits.
func (p *Plotter) label(v float64) string {
	return p.printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
}

func checkFinite(values []float64) error {
	if len(values) == 0 {
		return ErrEmpty
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("value %d is %v: %w", i, v, ErrNotFinite)
		}
	}
	return nil
}

// Plot draws series against its indices.
func (p *Plotter) Plot(series []float64) (string, error) {
	if err := checkFinite(series); err != nil {
		return "", err
	}
	xs := make([]float64, len(series))
	for i := range xs {
		xs[i] = float64(i)
	}
	return p.canvas(xs, series, '*'), nil
}

// Scatter draws one point per (x, y) pair.
func (p *Plotter) Scatter(xs, ys []float64) (string, error) {
	if len(xs) != len(ys) {
		return "", fmt.Errorf("%d x values, %d y values: %w", len(xs), len(ys), ErrLengthMismatch)
	}
	if err := checkFinite(xs); err != nil {
		return "", err
	}
	if err := checkFinite(ys); err != nil {
		return "", err
	}
	return p.canvas(xs, ys, 'o'), nil
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	return lo, hi
}

// scale maps v in [lo, hi] onto 0..steps.
func scale(v, lo, hi float64, steps int) int {
	return int(math.Round((v - lo) / (hi - lo) * float64(steps)))
}

func (p *Plotter) canvas(xs, ys []float64, mark rune) string {
	w, h := p.opts.Width, p.opts.Height
	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", w))
	}

	xlo, xhi := bounds(xs)
	ylo, yhi := bounds(ys)
	for i := range xs {
		col := scale(xs[i], xlo, xhi, w-1)
		row := h - 1 - scale(ys[i], ylo, yhi, h-1)
		grid[row][col] = mark
	}

	top, bottom := p.label(yhi), p.label(ylo)
	pad := max(utf8.RuneCountInString(top), utf8.RuneCountInString(bottom))

	var b strings.Builder
	for i, row := range grid {
		lbl := ""
		switch i {
		case 0:
			lbl = top
		case h - 1:
			lbl = bottom
		}
		fmt.Fprintf(&b, "%*s |%s\n", pad, lbl, strings.TrimRight(string(row), " "))
	}
	fmt.Fprintf(&b, "%*s +%s\n", pad, "", strings.Repeat("-", w))

	left, right := p.label(xlo), p.label(xhi)
	gap := max(1, w-utf8.RuneCountInString(left)-utf8.RuneCountInString(right))
	fmt.Fprintf(&b, "%*s  %s%s%s\n", pad, "", left, strings.Repeat(" ", gap), right)
	return b.String()
}

// Histogram counts values into equal-width bins and draws one bar per bin.
func (p *Plotter) Histogram(values []float64) (string, error) {
	if err := checkFinite(values); err != nil {
		return "", err
	}
	bins := p.opts.Bins
	lo, hi := bounds(values)
	width := (hi - lo) / float64(bins)

	counts := make([]int, bins)
	for _, v := range values {
		i := int((v - lo) / width)
		counts[min(max(i, 0), bins-1)]++
	}
	most := 0
	for _, c := range counts {
		most = max(most, c)
	}

	labels := make([]string, bins)
	pad := 0
	for i := range counts {
		labels[i] = fmt.Sprintf("[%s, %s)", p.label(lo+float64(i)*width), p.label(lo+float64(i+1)*width))
		pad = max(pad, utf8.RuneCountInString(labels[i]))
	}

	var b strings.Builder
	for i, c := range counts {
		bar := c * p.opts.Width / most
		fmt.Fprintf(&b, "%-*s |%s %d\n", pad, labels[i], strings.Repeat("#", bar), c)
	}
	return b.String(), nil
}
