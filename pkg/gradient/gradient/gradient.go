// Package gradient provides a public API for embedding the Gradient
// interpreter.
package gradient

import (
	"fmt"
	"io"

	"github.com/sambeau/gradient/config"
	"github.com/sambeau/gradient/pkg/gradient/dataio"
	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/evaluator"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
	"github.com/sambeau/gradient/pkg/gradient/parser"
	"github.com/sambeau/gradient/pkg/gradient/plot"
)

// Version is reported by grad --version.
const Version = "0.4.0"

type options struct {
	logger   Logger
	cfg      *config.Config
	files    evaluator.FileSink
	plotter  evaluator.PlotSink
	runLog   evaluator.RunLogWriter
	warnings io.Writer
	filename string
	baseDir  string
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets where print output and charts go.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig sets engine hyperparameters, limits and chart settings.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithFiles replaces the file store serving read_file and write_file.
func WithFiles(f evaluator.FileSink) Option {
	return func(o *options) { o.files = f }
}

// WithPlotter replaces the chart renderer.
func WithPlotter(p evaluator.PlotSink) Option {
	return func(o *options) { o.plotter = p }
}

// WithRunLog records print, training and write events.
func WithRunLog(r evaluator.RunLogWriter) Option {
	return func(o *options) { o.runLog = r }
}

// WithWarnings sets where warnings go, such as a failed run log write.
// The default is stderr.
func WithWarnings(w io.Writer) Option {
	return func(o *options) { o.warnings = w }
}

// WithFilename names the program in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithBaseDir sets the directory relative data file names resolve against.
// It overrides data.base_dir.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// Session runs programs against one environment, so variables and
// functions persist from one source to the next.
type Session struct {
	env *evaluator.Environment
}

// NewSession creates a session. It fails only when the chart settings are
// invalid.
func NewSession(opts ...Option) (*Session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		o.cfg = config.Defaults()
	}

	env := evaluator.NewEnvironment()
	env.Filename = o.filename
	env.Settings = o.cfg.ToSettings()
	env.MaxCallDepth = o.cfg.Limits.MaxCallDepth
	env.RunLog = o.runLog

	if o.logger != nil {
		env.Logger = o.logger
	}
	if o.warnings != nil {
		env.Warnings = o.warnings
	}

	env.Files = o.files
	if env.Files == nil {
		dir := o.baseDir
		if dir == "" {
			dir = o.cfg.Data.BaseDir
		}
		env.Files = dataio.NewStore(dir)
	}

	env.Plotter = o.plotter
	if env.Plotter == nil {
		p, err := plot.New(o.cfg.PlotOptions())
		if err != nil {
			return nil, err
		}
		env.Plotter = p
	}

	return &Session{env: env}, nil
}

// Env exposes the session environment.
func (s *Session) Env() *evaluator.Environment {
	return s.env
}

// Reset forgets every variable and function.
func (s *Session) Reset() {
	s.env.Reset()
}

// Run parses and evaluates source. On error the result is Unit and the
// error is a *errors.GradientError.
func (s *Session) Run(source string) (evaluator.Object, error) {
	result, gerr := s.run(source)
	if gerr != nil {
		return evaluator.UNIT, gerr
	}
	return result, nil
}

func (s *Session) run(source string) (result evaluator.Object, gerr *gerrors.GradientError) {
	defer func() {
		if r := recover(); r != nil {
			result = evaluator.UNIT
			gerr = gerrors.New("ENGINE-0001", map[string]any{
				"Detail": fmt.Sprintf("internal error: %v", r),
			})
			gerr.File = s.env.Filename
		}
	}()

	name := s.env.Filename
	if name == "" {
		name = "<input>"
	}
	p := parser.New(lexer.NewWithFilename(source, name))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		return evaluator.UNIT, errs[0]
	}

	result = evaluator.Eval(program, s.env)
	if err, ok := result.(*evaluator.Error); ok {
		return evaluator.UNIT, err.ToGradientError()
	}
	if result == nil {
		result = evaluator.UNIT
	}
	return result, nil
}

// Check parses source without running it.
func Check(source, filename string) error {
	if filename == "" {
		filename = "<input>"
	}
	p := parser.New(lexer.NewWithFilename(source, filename))
	p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Run parses and evaluates source in a fresh session.
func Run(source string, opts ...Option) (evaluator.Object, error) {
	s, err := NewSession(opts...)
	if err != nil {
		return evaluator.UNIT, err
	}
	return s.Run(source)
}

// Interpret evaluates source in a fresh session. A non-empty error list
// means the result is Unit and must be ignored.
func Interpret(source string, opts ...Option) (evaluator.Object, []string) {
	result, err := Run(source, opts...)
	if err != nil {
		return evaluator.UNIT, []string{err.Error()}
	}
	return result, nil
}
