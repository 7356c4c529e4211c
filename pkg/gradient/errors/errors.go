// Package errors provides structured error types for the Gradient language.
//
// GradientError represents both parser and runtime errors with a class, a
// catalog code, position information and optional hints.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and templating.
type ErrorClass string

const (
	ClassParse      ErrorClass = "parse"      // Parser/syntax errors
	ClassUndefined  ErrorClass = "undefined"  // Unknown variable or function
	ClassArity      ErrorClass = "arity"      // Wrong argument count
	ClassShape      ErrorClass = "shape"      // Mismatched dimensions or lengths
	ClassNumeric    ErrorClass = "numeric"    // Division by zero, singular matrix, ...
	ClassCapability ErrorClass = "capability" // Model lacks an operation
	ClassState      ErrorClass = "state"      // Model not fitted, call depth
	ClassType       ErrorClass = "type"       // Type mismatches
	ClassIO         ErrorClass = "io"         // File operations
	ClassFormat     ErrorClass = "format"     // Unreadable data files
	ClassOperator   ErrorClass = "operator"   // Operator not defined for operands
)

// GradientError represents any error from parsing or evaluation.
type GradientError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "SHAPE-0002")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`  // File path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *GradientError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *GradientError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *GradientError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parser error")
	default:
		sb.WriteString("Runtime error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("Use: ")
		} else {
			sb.WriteString(" or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *GradientError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *GradientError) WithFile(file string) *GradientError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *GradientError) WithPosition(line, column int) *GradientError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError returns true if this is a parser error.
func (e *GradientError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "'return' is only allowed inside a def body",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "def {{.Name}} must end with a return statement",
		Hints:    []string{"def {{.Name}}(...) { ... return value; }"},
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "{{.Message}}",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "'{{.Function}}' is a built-in and cannot be redefined",
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "duplicate parameter '{{.Param}}' in def {{.Name}}",
	},

	// ========================================
	// Arity errors (ARITY-0xxx)
	// ========================================
	"ARITY-0001": {
		Class:    ClassArity,
		Template: "wrong number of arguments to `{{.Function}}`. got={{.Got}}, want={{.Want}}",
	},
	"ARITY-0002": {
		Class:    ClassArity,
		Template: "`{{.Function}}` expects {{.Want}} argument(s), got {{.Got}}",
	},

	// ========================================
	// Undefined errors (UNDEF-0xxx)
	// ========================================
	"UNDEF-0001": {
		Class:    ClassUndefined,
		Template: "identifier not found: {{.Name}}",
		// Hint "Did you mean `X`?" added dynamically by fuzzy matching
	},
	"UNDEF-0002": {
		Class:    ClassUndefined,
		Template: "function not found: {{.Name}}",
	},

	// ========================================
	// Type errors (TYPE-0xxx)
	// ========================================
	"TYPE-0001": {
		Class:    ClassType,
		Template: "unsupported operand types for {{.Operator}}: {{.Left}} and {{.Right}}",
	},
	"TYPE-0002": {
		Class:    ClassType,
		Template: "cannot compare {{.Left}} with {{.Right}}",
	},
	"TYPE-0003": {
		Class:    ClassType,
		Template: "argument to `{{.Function}}` must be {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0004": {
		Class:    ClassType,
		Template: "first argument to `{{.Function}}` must be a model, got {{.Got}}",
	},
	"TYPE-0005": {
		Class:    ClassType,
		Template: "second argument to `{{.Function}}` must be {{.Expected}}, got {{.Got}}",
	},
	"TYPE-0006": {
		Class:    ClassType,
		Template: "unsupported operand type for {{.Operator}}: {{.Got}}",
	},

	// ========================================
	// Operator errors (OP-0xxx)
	// ========================================
	"OP-0001": {
		Class:    ClassOperator,
		Template: "operator {{.Operator}} is not defined for {{.Type}} values",
		Hints:    []string{"{{.Type}} values support == and !="},
	},

	// ========================================
	// Shape errors (SHAPE-0xxx)
	// ========================================
	"SHAPE-0001": {
		Class:    ClassShape,
		Template: "{{.Detail}}",
	},
	"SHAPE-0002": {
		Class:    ClassShape,
		Template: "list lengths differ for {{.Operator}}: {{.Left}} and {{.Right}}",
	},
	"SHAPE-0003": {
		Class:    ClassShape,
		Template: "matrix dimensions differ for {{.Operator}}: {{.Left}} and {{.Right}}",
	},

	// ========================================
	// Numeric errors (NUM-0xxx)
	// ========================================
	"NUM-0001": {
		Class:    ClassNumeric,
		Template: "division by zero",
	},
	"NUM-0002": {
		Class:    ClassNumeric,
		Template: "modulo by zero",
	},
	"NUM-0003": {
		Class:    ClassNumeric,
		Template: "square root of negative number: {{.Value}}",
	},
	"NUM-0004": {
		Class:    ClassNumeric,
		Template: "{{.Detail}}",
	},
	"NUM-0005": {
		Class:    ClassNumeric,
		Template: "integer overflow: {{.Left}} {{.Operator}} {{.Right}}",
		Hints:    []string{"write one operand as a float, e.g. {{.Left}}.0, to get an approximate result"},
	},

	// ========================================
	// Capability errors (CAP-0xxx)
	// ========================================
	"CAP-0001": {
		Class:    ClassCapability,
		Template: "model '{{.Kind}}' does not support {{.Operation}}",
	},

	// ========================================
	// State errors (STATE-0xxx)
	// ========================================
	"STATE-0001": {
		Class:    ClassState,
		Template: "{{.Detail}}",
		Hints:    []string{"train the model before calling {{.Operation}}"},
	},
	"STATE-0002": {
		Class:    ClassState,
		Template: "maximum call depth of {{.Max}} exceeded calling `{{.Function}}`",
	},

	// ========================================
	// Generic engine errors (ENGINE-0xxx)
	// ========================================
	"ENGINE-0001": {
		Class:    ClassType,
		Template: "{{.Detail}}",
	},

	// ========================================
	// I/O errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "failed to read file '{{.Path}}': {{.GoError}}",
	},
	"IO-0002": {
		Class:    ClassIO,
		Template: "failed to write file '{{.Path}}': {{.GoError}}",
	},

	// ========================================
	// Format errors (FORMAT-0xxx)
	// ========================================
	"FORMAT-0001": {
		Class:    ClassFormat,
		Template: "cannot read '{{.Path}}': {{.GoError}}",
	},
	"FORMAT-0002": {
		Class:    ClassFormat,
		Template: "cannot write {{.Got}} to '{{.Path}}': {{.GoError}}",
	},
}

// New creates a GradientError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *GradientError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &GradientError{
			Class:   ClassType,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &GradientError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates a GradientError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *GradientError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *GradientError {
	return &GradientError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// TypeName returns a lowercase type name for error messages.
// Converts "MATRIX" to "matrix" etc.
func TypeName(t string) string {
	return strings.ToLower(t)
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			cur[j] = min(
				prev[j]+1,      // deletion
				cur[j-1]+1,     // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}

// matchThreshold allows more edits for longer words.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns "" when nothing is within the length-dependent threshold or when
// the input matches a candidate exactly.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	// Sorted so ties resolve the same way regardless of map iteration order
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range sorted {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	if bestDistance <= 0 || bestDistance > matchThreshold(input) {
		return ""
	}

	return bestMatch
}

// NewUndefinedIdentifier creates an undefined identifier error with optional fuzzy matching.
func NewUndefinedIdentifier(name string, availableIdentifiers []string) *GradientError {
	err := New("UNDEF-0001", map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, availableIdentifiers); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}

// NewUndefinedFunction creates an undefined function error, suggesting
// user functions and built-ins with similar names.
func NewUndefinedFunction(name string, availableFunctions []string) *GradientError {
	err := New("UNDEF-0002", map[string]any{"Name": name})

	if suggestion := FindClosestMatch(name, availableFunctions); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}

	return err
}
