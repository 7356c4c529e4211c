// Package repl implements the interactive Gradient prompt.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"

	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/evaluator"
	"github.com/sambeau/gradient/pkg/gradient/gradient"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
)

const PROMPT = ">> "
const CONTINUATION_PROMPT = ".. "

const LOGO = `
█▀▀ █▀█ ▄▀█ █▀▄ █ █▀▀ █▄░█ ▀█▀
█▄█ █▀▄ █▀█ █▄▀ █ ██▄ █░▀█ ░█░ `

// HistoryFile is kept in the user's temp directory between sessions.
var HistoryFile = filepath.Join(os.TempDir(), ".gradient_history")

// REPL holds one interactive session. Input arrives a line at a time
// through Feed; output and errors go to out.
type REPL struct {
	session *gradient.Session
	out     io.Writer
	buffer  strings.Builder
}

// New creates a REPL whose programs run in a session built from opts.
// Program output goes to out unless opts set another logger.
func New(out io.Writer, opts ...gradient.Option) (*REPL, error) {
	opts = append([]gradient.Option{gradient.WithLogger(gradient.WriterLogger(out))}, opts...)
	s, err := gradient.NewSession(opts...)
	if err != nil {
		return nil, err
	}
	return &REPL{session: s, out: out}, nil
}

// Prompt returns the prompt for the next line.
func (r *REPL) Prompt() string {
	if r.buffer.Len() > 0 {
		return CONTINUATION_PROMPT
	}
	return PROMPT
}

// Pending reports whether a multi-line input is being collected.
func (r *REPL) Pending() bool {
	return r.buffer.Len() > 0
}

// Cancel drops any buffered input.
func (r *REPL) Cancel() {
	r.buffer.Reset()
}

// Feed handles one input line. It returns the complete input that was
// evaluated (for history), or "" while more lines are needed, and whether
// the user asked to quit.
func (r *REPL) Feed(input string) (complete string, quit bool) {
	trimmed := strings.TrimSpace(input)

	if r.buffer.Len() == 0 {
		switch {
		case trimmed == "exit" || trimmed == "quit":
			return "", true
		case strings.HasPrefix(trimmed, ":"):
			r.command(trimmed)
			return "", false
		case trimmed == "":
			return "", false
		}
	}

	if r.buffer.Len() > 0 {
		r.buffer.WriteString("\n")
	}
	r.buffer.WriteString(input)

	full := r.buffer.String()
	if needsMoreInput(full) {
		return "", false
	}
	r.buffer.Reset()

	r.eval(full)
	return full, false
}

func (r *REPL) eval(input string) {
	result, err := r.session.Run(input)
	if err != nil {
		printError(r.out, err)
		return
	}
	if result == evaluator.UNIT {
		return
	}
	fmt.Fprintln(r.out, result.Inspect())
}

// command handles REPL meta-commands that start with ':'
func (r *REPL) command(cmd string) {
	env := r.session.Env()
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(r.out, "REPL Commands:")
		fmt.Fprintln(r.out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(r.out, "  :env            Show variables in scope")
		fmt.Fprintln(r.out, "  :funcs          Show defined functions")
		fmt.Fprintln(r.out, "  :clear          Clear all variables and functions")
		fmt.Fprintln(r.out, "  exit, quit      Exit the REPL")
		fmt.Fprintln(r.out, "")
		fmt.Fprintln(r.out, "Input continues on the next line until braces, brackets and parentheses balance.")

	case ":env":
		printEnvironment(env, r.out)

	case ":funcs":
		printFunctions(env, r.out)

	case ":clear":
		r.session.Reset()
		fmt.Fprintln(r.out, "Environment cleared")

	default:
		fmt.Fprintf(r.out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
}

// Complete returns completion suggestions for the word being typed.
func (r *REPL) Complete(line string) []string {
	env := r.session.Env()
	words := lexer.Keywords()
	words = append(words, env.Identifiers()...)
	words = append(words, env.FunctionNames()...)
	return filterCompletions(line, words)
}

// Start runs the REPL on the terminal with line editing, history and tab
// completion.
func Start(out io.Writer, version string, opts ...gradient.Option) error {
	r, err := New(out, opts...)
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)
	line.SetCompleter(r.Complete)

	if f, err := os.Open(HistoryFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(HistoryFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "%s", LOGO)
	fmt.Fprintln(out, "v", version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Use Tab for completion, ↑↓ for history")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	for {
		input, err := line.Prompt(r.Prompt())
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C - clear any buffered input and return to main prompt
				if r.Pending() {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				r.Cancel()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		complete, quit := r.Feed(input)
		if quit {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if strings.TrimSpace(complete) != "" {
			line.AppendHistory(complete)
		}
	}
}

// printEnvironment displays the variables of the top-level scope
func printEnvironment(env *evaluator.Environment, out io.Writer) {
	names := env.Identifiers()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no variables)")
		return
	}

	for _, name := range names {
		obj, _ := env.Get(name)
		value := obj.Inspect()
		if len(value) > 60 {
			value = value[:57] + "..."
		}
		fmt.Fprintf(out, "  %s: %s = %s\n", name, typeLabel(obj), value)
	}
}

func typeLabel(obj evaluator.Object) string {
	if m, ok := obj.(*evaluator.Matrix); ok {
		return "MATRIX " + m.Shape()
	}
	return string(obj.Type())
}

func printFunctions(env *evaluator.Environment, out io.Writer) {
	names := env.FunctionNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "(no functions)")
		return
	}
	for _, name := range names {
		fn, _ := env.Function(name)
		fmt.Fprintf(out, "  def %s(%s)\n", name, strings.Join(fn.Params, ", "))
	}
}

// filterCompletions returns the words starting with the last word of line
func filterCompletions(line string, words []string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	// Don't complete if line ends with whitespace (including tabs from pasting)
	if last := line[len(line)-1]; last == ' ' || last == '\t' {
		return nil
	}

	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) + 1
	prefix, word := line[:start], line[start:]
	if word == "" {
		return nil
	}

	seen := make(map[string]bool)
	var matches []string
	for _, w := range words {
		if strings.HasPrefix(w, word) && !seen[w] {
			seen[w] = true
			matches = append(matches, prefix+w)
		}
	}
	sort.Strings(matches)
	return matches
}

// needsMoreInput checks if the input has unclosed braces, brackets or
// parentheses. Strings and comments are skipped.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	var quote byte

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case '#':
			i = skipComment(input, i)
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				i = skipComment(input, i)
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}

	return depth > 0
}

func skipComment(input string, i int) int {
	if nl := strings.IndexByte(input[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(input)
}

// printError prints an error in the multi-line display format
func printError(out io.Writer, err error) {
	if gerr, ok := err.(*gerrors.GradientError); ok {
		io.WriteString(out, gerr.PrettyString())
	} else {
		io.WriteString(out, err.Error())
	}
	io.WriteString(out, "\n")
}
