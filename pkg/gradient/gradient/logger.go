package gradient

import (
	"io"
	"strings"
	"sync"

	"github.com/sambeau/gradient/pkg/gradient/evaluator"
)

// Logger receives print() output and rendered charts.
type Logger = evaluator.Logger

// StdoutLogger writes output to stdout, the CLI default.
func StdoutLogger() Logger {
	return evaluator.DefaultLogger
}

// WriterLogger writes output to w as a terminal would show it.
func WriterLogger(w io.Writer) Logger {
	return evaluator.NewWriterLogger(w)
}

// Output is one captured piece of program output.
type Output struct {
	Kind string // "print", or the chart kind: plot, scatter, histogram
	Text string
}

// IsChart reports whether the output is a rendered chart.
func (o Output) IsChart() bool { return o.Kind != evaluator.EventPrint }

// Capture keeps program output in memory, in order, so embedders can tell
// printed values from charts.
type Capture struct {
	mu      sync.Mutex
	outputs []Output
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) Print(text string) {
	c.add(Output{Kind: evaluator.EventPrint, Text: text})
}

func (c *Capture) Chart(kind, text string) {
	c.add(Output{Kind: kind, Text: strings.TrimRight(text, "\n")})
}

func (c *Capture) add(o Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = append(c.outputs, o)
}

// Outputs returns everything captured so far.
func (c *Capture) Outputs() []Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Output(nil), c.outputs...)
}

// Prints returns the text of each print() call.
func (c *Capture) Prints() []string {
	var prints []string
	for _, o := range c.Outputs() {
		if !o.IsChart() {
			prints = append(prints, o.Text)
		}
	}
	return prints
}

// Charts returns the rendered charts.
func (c *Capture) Charts() []Output {
	var charts []Output
	for _, o := range c.Outputs() {
		if o.IsChart() {
			charts = append(charts, o)
		}
	}
	return charts
}

// String renders the capture the way WriterLogger would have written it.
func (c *Capture) String() string {
	var b strings.Builder
	for _, o := range c.Outputs() {
		b.WriteString(o.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Reset drops everything captured.
func (c *Capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs = nil
}

type nullLogger struct{}

func (nullLogger) Print(string)        {}
func (nullLogger) Chart(string, string) {}

// NullLogger discards all output.
func NullLogger() Logger {
	return nullLogger{}
}
