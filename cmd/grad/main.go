package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sambeau/gradient/config"
	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/evaluator"
	"github.com/sambeau/gradient/pkg/gradient/gradient"
	"github.com/sambeau/gradient/pkg/gradient/repl"
	"github.com/sambeau/gradient/pkg/gradient/runlog"
	"github.com/sambeau/gradient/pkg/gradient/watch"
)

// errFailed means the program failed and the error was already reported.
var errFailed = errors.New("program failed")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("grad", flag.ContinueOnError)
	flags.SetOutput(io.Discard) // Suppress default -h output

	var (
		configPath  = flags.String("config", "", "Path to config file")
		evalCode    = flags.String("e", "", "Evaluate code string")
		checkMode   = flags.Bool("check", false, "Check syntax without executing")
		watchMode   = flags.Bool("watch", false, "Re-run the program when it changes")
		runLogPath  = flags.String("runlog", "", "Record print and training events in this database")
		runLogShow  = flags.String("runlog-show", "", "Print the latest events of a run log")
		runLogClear = flags.String("runlog-clear", "", "Delete every event of a run log")
		last        = flags.Int("last", 20, "Number of events --runlog-show prints")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)
	flags.StringVar(evalCode, "eval", "", "Alias for -e")
	flags.BoolVar(showVersion, "V", false, "Alias for --version")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		printUsage(stderr)
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "grad version %s\n", gradient.Version)
		return nil
	}

	// These modes need no configuration
	if *runLogShow != "" {
		return showRunLog(*runLogShow, *last, stdout)
	}
	if *runLogClear != "" {
		return clearRunLog(*runLogClear, stdout)
	}
	if *checkMode {
		if flags.NArg() == 0 {
			return fmt.Errorf("--check requires at least one file")
		}
		return checkFiles(flags.Args(), stderr)
	}

	cfg, configFile, err := config.LoadWithPath(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, warning := range config.Warnings(cfg) {
		fmt.Fprintf(stderr, "[WARN] %s\n", warning)
	}
	if *runLogPath != "" {
		cfg.RunLog.Path = *runLogPath
	}

	p := &program{cfg: cfg, stdout: stdout, stderr: stderr, getenv: getenv}

	switch {
	case *evalCode != "":
		return p.runSource(*evalCode, "<eval>")

	case *watchMode:
		if flags.NArg() == 0 {
			return fmt.Errorf("--watch requires a file")
		}
		ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return p.watch(ctx, flags.Arg(0), configFile)

	case flags.NArg() > 0:
		return p.runFile(flags.Arg(0))

	default:
		opts, closeLog, err := p.options("")
		if err != nil {
			return err
		}
		defer closeLog()
		return repl.Start(stdout, gradient.Version, opts...)
	}
}

// program runs Gradient source with one configuration
type program struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

// options builds the session options. The returned func closes the run log.
func (p *program) options(filename string) ([]gradient.Option, func(), error) {
	opts := []gradient.Option{
		gradient.WithConfig(p.cfg),
		gradient.WithLogger(gradient.WriterLogger(p.stdout)),
		gradient.WithFilename(filename),
		gradient.WithWarnings(p.stderr),
	}
	if p.cfg.RunLog.Path == "" {
		return opts, func() {}, nil
	}

	rl, err := runlog.Open(p.cfg.RunLog.Path, runlog.Config{
		MaxRows:  p.cfg.RunLog.MaxRows,
		Filename: filename,
		Warn:     p.stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return append(opts, gradient.WithRunLog(rl)), func() { rl.Close() }, nil
}

func (p *program) runFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading file '%s': %w", filename, err)
	}
	return p.runSource(string(content), filename)
}

// runSource runs source and prints its result unless it is unit
func (p *program) runSource(source, filename string) error {
	opts, closeLog, err := p.options(filename)
	if err != nil {
		return err
	}
	defer closeLog()

	result, err := gradient.Run(source, opts...)
	if err != nil {
		printError(p.stderr, source, err)
		return errFailed
	}
	if result != evaluator.UNIT {
		fmt.Fprintln(p.stdout, result.Inspect())
	}
	return nil
}

// watch runs filename, then runs it again each time it or the config file
// is saved, until ctx is cancelled.
func (p *program) watch(ctx context.Context, filename, configFile string) error {
	if err := p.runFile(filename); err != nil && !errors.Is(err, errFailed) {
		return err
	}

	w, err := watch.New([]string{filename, configFile}, func(path string) {
		if path == configFile {
			cfg, err := config.Load(configFile, p.getenv)
			if err != nil {
				fmt.Fprintf(p.stderr, "[WATCH ERROR] %v\n", err)
				return
			}
			runLogPath := p.cfg.RunLog.Path
			p.cfg = cfg
			p.cfg.RunLog.Path = runLogPath
		}
		if err := p.runFile(filename); err != nil && !errors.Is(err, errFailed) {
			fmt.Fprintf(p.stderr, "[WATCH ERROR] %v\n", err)
		}
	}, p.stdout, p.stderr)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// openExistingRunLog opens a run log for reading. Unlike --runlog it never
// creates one.
func openExistingRunLog(path string) (*runlog.RunLog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("run log %s: %w", path, err)
	}
	return runlog.Open(path, runlog.Config{})
}

// showRunLog prints the latest events of a run log, oldest first
func showRunLog(path string, last int, stdout io.Writer) error {
	rl, err := openExistingRunLog(path)
	if err != nil {
		return err
	}
	defer rl.Close()

	total, err := rl.Count()
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	events, err := rl.Events("", last)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Run log %s: %d events, showing %d\n", rl.Path(), total, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		fmt.Fprintf(stdout, "%s  %s  %s:%d  %-5s  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Run, e.Filename, e.Line, e.Kind, e.Detail)
	}
	return nil
}

func clearRunLog(path string, stdout io.Writer) error {
	rl, err := openExistingRunLog(path)
	if err != nil {
		return err
	}
	defer rl.Close()

	total, err := rl.Count()
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	if err := rl.Clear(); err != nil {
		return fmt.Errorf("clearing run log: %w", err)
	}
	fmt.Fprintf(stdout, "Run log %s: removed %d events\n", rl.Path(), total)
	return nil
}

// checkFiles checks the syntax of one or more files without executing them
func checkFiles(files []string, stderr io.Writer) error {
	failed := false
	for _, filename := range files {
		content, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filename, err)
		}
		if err := gradient.Check(string(content), filename); err != nil {
			printError(stderr, string(content), err)
			failed = true
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// printError prints an error with source context
func printError(w io.Writer, source string, err error) {
	var gerr *gerrors.GradientError
	if !errors.As(err, &gerr) {
		fmt.Fprintln(w, err)
		return
	}
	fmt.Fprintln(w, gerr.PrettyString())
	printSourceContext(w, strings.Split(source, "\n"), gerr.Line, gerr.Column)
}

// printSourceContext prints the source line and error pointer
func printSourceContext(w io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]

	// Calculate how many columns to trim from the left
	trimCount := 0
	for i := 0; i < len(sourceLine); i++ {
		if sourceLine[i] == ' ' {
			trimCount++
		} else if sourceLine[i] == '\t' {
			trimCount += 8
		} else {
			break
		}
	}

	fmt.Fprintf(w, "    %s\n", strings.TrimLeft(sourceLine, " \t"))

	if colNum > 0 {
		// Visual column accounting for tabs (8 spaces each)
		visualCol := 0
		for i := 0; i < colNum-1 && i < len(sourceLine); i++ {
			if sourceLine[i] == '\t' {
				visualCol += 8
			} else {
				visualCol++
			}
		}
		adjustedCol := max(visualCol-trimCount, 0)
		fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", adjustedCol))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `grad - Gradient language interpreter version %s

Usage:
  grad [options] [file]
  grad -e "code"
  grad --check <file>...
  grad --watch <file>
  grad --runlog-show <db> [--last N]

Options:
  -e, --eval CODE    Evaluate code string and print the result
  --check            Check syntax without executing (can specify multiple files)
  --watch            Run the file, then run it again whenever it or the config changes
  --config PATH      Path to config file (default: auto-detect)
  --runlog PATH      Record print, training and write events in an SQLite database
  --runlog-show PATH Print the latest run log events, oldest first
  --last N           Number of events --runlog-show prints (default 20)
  --runlog-clear PATH
                     Delete every event of a run log
  -V, --version      Show version
  -h, --help         Show this help

Config Resolution:
  1. --config flag
  2. GRADIENT_CONFIG environment variable
  3. ./gradient.yaml
  4. ~/.config/gradient/gradient.yaml

Examples:
  grad                          Start interactive REPL
  grad model.grad               Run a program
  grad -e "inverse([[1, 2], [3, 4]])"
  grad --check *.grad           Check syntax of several files
  grad --watch model.grad       Re-run on save
  grad --runlog-show runs.db    Show what recent runs printed and trained
`, gradient.Version)
}
