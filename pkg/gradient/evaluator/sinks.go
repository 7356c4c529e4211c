package evaluator

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger receives program output.
type Logger interface {
	// Print receives the text of one print() call.
	Print(text string)
	// Chart receives a rendered chart; kind is plot, scatter or histogram.
	Chart(kind, text string)
}

// writerLogger writes output as a terminal shows it: one line per print,
// charts as blocks.
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Print(text string) {
	fmt.Fprintln(l.w, text)
}

func (l *writerLogger) Chart(kind, text string) {
	fmt.Fprintln(l.w, strings.TrimRight(text, "\n"))
}

// NewWriterLogger returns a Logger writing to w.
func NewWriterLogger(w io.Writer) Logger {
	return &writerLogger{w: w}
}

// DefaultLogger is the default stdout logger
var DefaultLogger Logger = NewWriterLogger(os.Stdout)

// FileSink serves read_file and write_file. Values cross it as native Go
// data: int64, float64, string, bool, []any and [][]any.
type FileSink interface {
	Read(name string) (any, error)
	Write(name string, content any) error
}

// PlotSink renders plot, scatter and histogram calls to text.
type PlotSink interface {
	Plot(series []float64) (string, error)
	Scatter(xs, ys []float64) (string, error)
	Histogram(values []float64) (string, error)
}

// RunLogWriter records notable events of a run.
type RunLogWriter interface {
	Record(kind, detail string, line int) error
}

// Run log event kinds.
const (
	EventPrint = "print"
	EventTrain = "train"
	EventWrite = "write"
)
