package evaluator

import (
	"io"
	"os"
	"sort"

	"github.com/sambeau/gradient/pkg/gradient/ast"
	"github.com/sambeau/gradient/pkg/gradient/ml"
)

// DefaultMaxCallDepth bounds user-function recursion.
const DefaultMaxCallDepth = 512

// Function is an entry of the function table.
type Function struct {
	Params []string
	Body   *ast.BlockStatement
	Return *ast.ReturnStatement
}

// Environment holds the state of one program run: a stack of variable
// scopes where only the top one is visible, and a function table shared by
// all of them.
type Environment struct {
	scopes     []map[string]Object
	functions  map[string]*Function
	inFunction bool
	depth      int

	Filename     string
	Logger       Logger
	Files        FileSink
	Plotter      PlotSink
	RunLog       RunLogWriter // optional
	Warnings     io.Writer    // [WARN] lines that are not program output
	Settings     ml.Settings
	MaxCallDepth int
}

// NewEnvironment creates an environment with one empty top-level scope.
func NewEnvironment() *Environment {
	return &Environment{
		scopes:       []map[string]Object{make(map[string]Object)},
		functions:    make(map[string]*Function),
		Logger:       DefaultLogger,
		Warnings:     os.Stderr,
		Settings:     ml.DefaultSettings(),
		MaxCallDepth: DefaultMaxCallDepth,
	}
}

func (e *Environment) top() map[string]Object {
	return e.scopes[len(e.scopes)-1]
}

// Get looks a name up in the visible scope.
func (e *Environment) Get(name string) (Object, bool) {
	val, ok := e.top()[name]
	return val, ok
}

// Set binds a name in the visible scope. Models are copied, so every
// variable owns its own engine.
func (e *Environment) Set(name string, val Object) Object {
	if m, ok := val.(*Model); ok {
		val = m.clone()
	}
	e.top()[name] = val
	return val
}

// InFunction reports whether a user function is executing.
func (e *Environment) InFunction() bool { return e.inFunction }

// Define adds or replaces a user function.
func (e *Environment) Define(name string, fn *Function) {
	e.functions[name] = fn
}

// Function looks up a user function.
func (e *Environment) Function(name string) (*Function, bool) {
	fn, ok := e.functions[name]
	return fn, ok
}

// Identifiers returns the sorted names bound in the visible scope.
func (e *Environment) Identifiers() []string {
	names := make([]string, 0, len(e.top()))
	for name := range e.top() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionNames returns the sorted names of the user functions.
func (e *Environment) FunctionNames() []string {
	names := make([]string, 0, len(e.functions))
	for name := range e.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every variable and function, keeping sinks and settings.
func (e *Environment) Reset() {
	e.scopes = []map[string]Object{make(map[string]Object)}
	e.functions = make(map[string]*Function)
	e.inFunction = false
	e.depth = 0
}

// enter pushes a scope holding only params and marks the environment as
// inside a function. The returned func restores the caller's scope and
// flags; it reports false when the call depth limit is reached.
func (e *Environment) enter(params map[string]Object) (func(), bool) {
	if e.MaxCallDepth > 0 && e.depth >= e.MaxCallDepth {
		return nil, false
	}
	saved := e.inFunction
	scope := make(map[string]Object, len(params))
	e.scopes = append(e.scopes, scope)
	for name, val := range params {
		e.Set(name, val)
	}
	e.inFunction = true
	e.depth++

	return func() {
		e.scopes = e.scopes[:len(e.scopes)-1]
		e.inFunction = saved
		e.depth--
	}, true
}
