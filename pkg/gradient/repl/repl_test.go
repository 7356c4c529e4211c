package repl

import (
	"bytes"
	"strings"
	"testing"
)

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := New(&out)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r, &out
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"x = 1;", false},
		{"", false},
		{"def f(a) {", true},
		{"def f(a) { return a; }", false},
		{"m = [[1, 2],", true},
		{"m = [[1, 2], [3, 4]]", false},
		{"print(", true},
		{"s = '{';", false},
		{`s = "[(";`, false},
		{`s = "say \"{\"";`, false},
		{"x = 1; # {", false},
		{"x = 1; // (", false},
		{"if (x > 1) { # }\n", true},
		{"if (x > 1) {\n  y = 2;\n}", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := needsMoreInput(tt.input); got != tt.expected {
				t.Errorf("needsMoreInput(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFilterCompletions(t *testing.T) {
	words := []string{"kmeans", "predict", "print", "plot", "points"}

	tests := []struct {
		line     string
		expected string
	}{
		{"pr", "predict,print"},
		{"x = km", "x = kmeans"},
		{"plot(po", "plot(points"},
		{"", ""},
		{"pr ", ""},
		{"x = zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := strings.Join(filterCompletions(tt.line, words), ",")
			if got != tt.expected {
				t.Errorf("filterCompletions(%q) = %q, want %q", tt.line, got, tt.expected)
			}
		})
	}
}

func TestFeedEvaluates(t *testing.T) {
	r, out := newTestREPL(t)

	if complete, quit := r.Feed("x = 5;"); quit || complete != "x = 5;" {
		t.Fatalf("unexpected feed result %q %v", complete, quit)
	}
	r.Feed("x * 2")
	r.Feed("print('hi');")

	if got := out.String(); got != "5\n10\nhi\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestFeedMultiLine(t *testing.T) {
	r, out := newTestREPL(t)

	if complete, _ := r.Feed("def double(a) {"); complete != "" {
		t.Fatalf("expected more input, got %q", complete)
	}
	if r.Prompt() != CONTINUATION_PROMPT || !r.Pending() {
		t.Errorf("expected continuation prompt")
	}
	r.Feed("  return a * 2;")
	complete, _ := r.Feed("}")
	if complete != "def double(a) {\n  return a * 2;\n}" {
		t.Errorf("unexpected complete input %q", complete)
	}
	if r.Prompt() != PROMPT {
		t.Errorf("expected main prompt after complete input")
	}

	r.Feed("double(21)")
	if !strings.HasSuffix(out.String(), "42\n") {
		t.Errorf("unexpected output %q", out.String())
	}

	r.Feed("m = [[1, 2],")
	r.Cancel()
	if r.Pending() {
		t.Errorf("cancel left input buffered")
	}
}

func TestFeedErrors(t *testing.T) {
	r, out := newTestREPL(t)

	r.Feed("x = ;")
	if !strings.HasPrefix(out.String(), "Parser error") {
		t.Errorf("expected parser error, got %q", out.String())
	}

	out.Reset()
	r.Feed("totl = 1; total + 1")
	if !strings.HasPrefix(out.String(), "Runtime error") || !strings.Contains(out.String(), "totl") {
		t.Errorf("expected runtime error with suggestion, got %q", out.String())
	}
}

func TestQuit(t *testing.T) {
	r, _ := newTestREPL(t)
	for _, word := range []string{"exit", "quit", "  exit  "} {
		if _, quit := r.Feed(word); !quit {
			t.Errorf("%q did not quit", word)
		}
	}
}

func TestCommands(t *testing.T) {
	r, out := newTestREPL(t)

	r.Feed(":env")
	if !strings.Contains(out.String(), "(no variables)") {
		t.Errorf("unexpected :env output %q", out.String())
	}

	r.Feed("a = 1; m = [[1, 2], [3, 4]];")
	r.Feed("def add(p, q) { return p + q; }")

	out.Reset()
	r.Feed(":env")
	env := out.String()
	if !strings.Contains(env, "a: INTEGER = 1") {
		t.Errorf("missing a in %q", env)
	}
	if !strings.Contains(env, "m: MATRIX 2x2 = [[1, 2], [3, 4]]") {
		t.Errorf("missing m in %q", env)
	}

	out.Reset()
	r.Feed(":funcs")
	if !strings.Contains(out.String(), "def add(p, q)") {
		t.Errorf("unexpected :funcs output %q", out.String())
	}

	if got := strings.Join(r.Complete("ad"), ","); got != "add" {
		t.Errorf("expected completion of user function, got %q", got)
	}

	out.Reset()
	r.Feed(":clear")
	r.Feed(":env")
	r.Feed(":funcs")
	if got := out.String(); got != "Environment cleared\n(no variables)\n(no functions)\n" {
		t.Errorf("unexpected output after :clear %q", got)
	}

	out.Reset()
	r.Feed(":help")
	if !strings.Contains(out.String(), ":funcs") {
		t.Errorf("help does not list :funcs")
	}

	out.Reset()
	r.Feed(":nope")
	if !strings.HasPrefix(out.String(), "Unknown command: :nope") {
		t.Errorf("unexpected output %q", out.String())
	}
}
