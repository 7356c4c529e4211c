package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sambeau/gradient/config"
	"github.com/sambeau/gradient/pkg/gradient/runlog"
)

func noenv(string) string { return "" }

// isolate keeps config discovery away from the developer's own files
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	return dir
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := run(ctx, args, stdout, stderr, noenv)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestRunVersion(t *testing.T) {
	for _, arg := range []string{"--version", "-V"} {
		stdout, _, err := runCLI(t, context.Background(), arg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(stdout, "grad version ") {
			t.Errorf("expected version output, got %q", stdout)
		}
	}
}

func TestRunHelp(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		stdout, _, err := runCLI(t, context.Background(), arg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "grad - Gradient language interpreter") {
			t.Errorf("expected help output, got %q", stdout)
		}
		if !strings.Contains(stdout, "--watch") {
			t.Errorf("expected --watch in help, got %q", stdout)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	_, stderr, err := runCLI(t, context.Background(), "--invalid-flag")
	if err == nil {
		t.Error("expected error for invalid flag")
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("expected usage on stderr, got %q", stderr)
	}
}

func TestEvaluateInline(t *testing.T) {
	isolate(t)

	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"integer", "1 + 2", "3\n"},
		{"float", "7 / 2", "3.5\n"},
		{"matrix", "matmult([[1, 2], [3, 4]], [[5, 6], [7, 8]])", "[[19, 22], [43, 50]]\n"},
		{"print only", "print('hi');", "hi\n"},
		{"string", "'hello'", "hello\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, err := runCLI(t, context.Background(), "-e", tt.code)
			if err != nil {
				t.Fatalf("unexpected error: %v (%s)", err, stderr)
			}
			if stdout != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, stdout)
			}
		})
	}
}

func TestEvaluateInlineErrors(t *testing.T) {
	isolate(t)

	_, stderr, err := runCLI(t, context.Background(), "-e", "x = ;")
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.HasPrefix(stderr, "Parser error") {
		t.Errorf("expected parser error, got %q", stderr)
	}
	if !strings.Contains(stderr, "    x = ;\n") || !strings.Contains(stderr, "^") {
		t.Errorf("expected source context, got %q", stderr)
	}

	_, stderr, err = runCLI(t, context.Background(), "--eval", "y = 1 / 0;")
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.HasPrefix(stderr, "Runtime error") {
		t.Errorf("expected runtime error, got %q", stderr)
	}
}

func TestRunFile(t *testing.T) {
	dir := isolate(t)
	prog := filepath.Join(dir, "prog.grad")
	writeFile(t, prog, "print('hi');\nx = 2 * 3;\nx")

	stdout, stderr, err := runCLI(t, context.Background(), prog)
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr)
	}
	if stdout != "hi\n6\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	bad := filepath.Join(dir, "bad.grad")
	writeFile(t, bad, "x = 1;\ny = undefined_name;")
	_, stderr, err = runCLI(t, context.Background(), bad)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.Contains(stderr, bad) || !strings.Contains(stderr, "undefined_name") {
		t.Errorf("expected error naming the file and identifier, got %q", stderr)
	}

	_, _, err = runCLI(t, context.Background(), filepath.Join(dir, "missing.grad"))
	if err == nil || errors.Is(err, errFailed) {
		t.Errorf("expected a read error, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	dir := isolate(t)
	good := filepath.Join(dir, "good.grad")
	bad := filepath.Join(dir, "bad.grad")
	writeFile(t, good, "def f(a) { return a + 1; }\nprint(f(1));")
	writeFile(t, bad, "def f(a) {\n  return a +;\n}")

	stdout, _, err := runCLI(t, context.Background(), "--check", good)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if stdout != "" {
		t.Errorf("--check must not run the program, got %q", stdout)
	}

	_, stderr, err := runCLI(t, context.Background(), "--check", good, bad)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.Contains(stderr, bad) {
		t.Errorf("expected error naming %s, got %q", bad, stderr)
	}

	if _, _, err := runCLI(t, context.Background(), "--check"); err == nil {
		t.Error("expected error for --check without files")
	}
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	writeFile(t, cfgPath, "plot:\n  width: 10\n  height: 5\nengines:\n  mlp_classifier:\n    learning_rate: 2\n")

	stdout, stderr, err := runCLI(t, context.Background(), "--config", cfgPath, "-e", "plot([1, 2, 3]);")
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr)
	}
	if strings.Count(stdout, "*") != 3 {
		t.Errorf("expected 3 points, got %q", stdout)
	}
	if !strings.Contains(stderr, "[WARN] engines.mlp_classifier.learning_rate") {
		t.Errorf("expected learning rate warning, got %q", stderr)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	writeFile(t, invalid, "limits:\n  max_call_depth: -1\n")
	_, _, err = runCLI(t, context.Background(), "--config", invalid, "-e", "1")
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestRunLogFlag(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "runs.db")

	_, stderr, err := runCLI(t, context.Background(), "--runlog", dbPath, "-e", "print('a'); print('b');")
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr)
	}

	rl, err := runlog.Open(dbPath, runlog.Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer rl.Close()
	events, err := rl.Events("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].Detail != "b" || events[0].Filename != "<eval>" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestWatch(t *testing.T) {
	dir := isolate(t)
	prog := filepath.Join(dir, "prog.grad")
	writeFile(t, prog, "print('run');")

	// a cancelled context stops the watcher after the first run
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stdout, stderr, err := runCLI(t, ctx, "--watch", prog)
	if err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr)
	}
	if !strings.HasPrefix(stdout, "run\n") {
		t.Errorf("expected first run output, got %q", stdout)
	}
	if !strings.Contains(stdout, "[WATCH] watching "+prog) {
		t.Errorf("expected watch message, got %q", stdout)
	}

	if _, _, err := runCLI(t, context.Background(), "--watch"); err == nil {
		t.Error("expected error for --watch without a file")
	}
}

func TestRunLogShowAndClear(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "runs.db")

	for _, code := range []string{"print('first');", "print('second'); print('third');"} {
		if _, stderr, err := runCLI(t, context.Background(), "--runlog", dbPath, "-e", code); err != nil {
			t.Fatalf("unexpected error: %v (%s)", err, stderr)
		}
	}

	stdout, _, err := runCLI(t, context.Background(), "--runlog-show", dbPath, "--last", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected a header and 2 events, got %q", stdout)
	}
	if lines[0] != "Run log "+dbPath+": 3 events, showing 2" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "<eval>:1  print  second") || !strings.HasSuffix(lines[2], "<eval>:1  print  third") {
		t.Errorf("expected the two newest events oldest first, got %q", lines[1:])
	}

	stdout, _, err = runCLI(t, context.Background(), "--runlog-clear", dbPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "Run log "+dbPath+": removed 3 events\n" {
		t.Errorf("unexpected output %q", stdout)
	}
	stdout, _, _ = runCLI(t, context.Background(), "--runlog-show", dbPath)
	if !strings.HasPrefix(stdout, "Run log "+dbPath+": 0 events") {
		t.Errorf("expected an empty log, got %q", stdout)
	}

	missing := filepath.Join(dir, "missing.db")
	if _, _, err := runCLI(t, context.Background(), "--runlog-show", missing); err == nil {
		t.Error("expected an error for a missing run log")
	}
	if _, err := os.Stat(missing); err == nil {
		t.Error("--runlog-show must not create a run log")
	}
}

// syncBuffer is a bytes.Buffer safe to read while the watcher writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(buf.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q, got %q", want, buf.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchReloadsConfig(t *testing.T) {
	dir := isolate(t)
	prog := filepath.Join(dir, "prog.grad")
	cfgPath := filepath.Join(dir, "gradient.yaml")
	dbPath := filepath.Join(dir, "runs.db")
	writeFile(t, prog, "plot([1, 2, 3]);")
	writeFile(t, cfgPath, "plot:\n  width: 10\n  height: 5\n")

	cfg, err := config.Load(cfgPath, noenv)
	if err != nil {
		t.Fatal(err)
	}
	cfg.RunLog.Path = dbPath

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	p := &program{cfg: cfg, stdout: stdout, stderr: stderr, getenv: noenv}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.watch(ctx, prog, cfgPath) }()

	wide := "+" + strings.Repeat("-", 20)
	waitFor(t, stdout, "[WATCH] watching "+cfgPath)
	if strings.Contains(stdout.String(), wide) {
		t.Fatalf("first run already used the wide chart: %q", stdout.String())
	}

	writeFile(t, cfgPath, "plot:\n  width: 20\n  height: 5\n")
	waitFor(t, stdout, wide)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v (%s)", err, stderr.String())
	}
	if p.cfg.Plot.Width != 20 {
		t.Errorf("expected the reloaded width, got %d", p.cfg.Plot.Width)
	}
	if p.cfg.RunLog.Path != dbPath {
		t.Errorf("reload dropped the run log path, got %q", p.cfg.RunLog.Path)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected runs to be logged to %s: %v", dbPath, err)
	}
}
