package errors

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGradientError_String(t *testing.T) {
	tests := []struct {
		name     string
		err      *GradientError
		expected string
	}{
		{
			name:     "message only",
			err:      &GradientError{Message: "something went wrong"},
			expected: "something went wrong",
		},
		{
			name: "with line and column",
			err: &GradientError{
				Message: "unexpected token",
				Line:    5,
				Column:  10,
			},
			expected: "line 5, column 10: unexpected token",
		},
		{
			name: "with file",
			err: &GradientError{
				Message: "parse error",
				File:    "fit.grad",
				Line:    3,
				Column:  1,
			},
			expected: "fit.grad: line 3, column 1: parse error",
		},
		{
			name: "with hints",
			err: &GradientError{
				Message: "identifier not found: modle",
				Line:    1,
				Column:  1,
				Hints:   []string{"Did you mean `model`?"},
			},
			expected: "line 1, column 1: identifier not found: modle\n  Did you mean `model`?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGradientError_PrettyString(t *testing.T) {
	tests := []struct {
		name     string
		err      *GradientError
		contains []string
	}{
		{
			name: "parse error with position",
			err: &GradientError{
				Class:   ClassParse,
				Message: "expected ;, got '}'",
				Line:    2,
				Column:  7,
			},
			contains: []string{"Parser error: line 2, column 7", "expected ;"},
		},
		{
			name: "runtime error in file with hints",
			err: &GradientError{
				Class:   ClassState,
				Message: "model is not fitted",
				File:    "train.grad",
				Line:    4,
				Column:  1,
				Hints:   []string{"train first", "or use fit_predict"},
			},
			contains: []string{"Runtime error", "in: train.grad", "at: line 4, column 1", "Use: train first", " or: or use fit_predict"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.PrettyString()
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("PrettyString() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		data      map[string]any
		wantClass ErrorClass
		wantMsg   string
		wantHints int
	}{
		{
			name:      "arity",
			code:      "ARITY-0002",
			data:      map[string]any{"Function": "matmult", "Want": 2, "Got": 1},
			wantClass: ClassArity,
			wantMsg:   "`matmult` expects 2 argument(s), got 1",
		},
		{
			name:      "capability",
			code:      "CAP-0001",
			data:      map[string]any{"Kind": "kmeans", "Operation": "encode"},
			wantClass: ClassCapability,
			wantMsg:   "model 'kmeans' does not support encode",
		},
		{
			name:      "state with hint",
			code:      "STATE-0001",
			data:      map[string]any{"Detail": "predict: model is not fitted", "Operation": "predict"},
			wantClass: ClassState,
			wantMsg:   "predict: model is not fitted",
			wantHints: 1,
		},
		{
			name:      "numeric without data",
			code:      "NUM-0001",
			wantClass: ClassNumeric,
			wantMsg:   "division by zero",
		},
		{
			name:      "unknown code falls back to message",
			code:      "NOPE-9999",
			data:      map[string]any{"message": "custom failure"},
			wantClass: ClassType,
			wantMsg:   "custom failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.data)
			if err.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", err.Class, tt.wantClass)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if len(err.Hints) != tt.wantHints {
				t.Errorf("Hints = %v, want %d hints", err.Hints, tt.wantHints)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewWithPosition(t *testing.T) {
	err := NewWithPosition("PARSE-0001", 3, 9, map[string]any{"Expected": ";", "Got": "}"})
	if err.Line != 3 || err.Column != 9 {
		t.Errorf("position = %d:%d, want 3:9", err.Line, err.Column)
	}
	if err.String() != "line 3, column 9: expected ;, got '}'" {
		t.Errorf("unexpected String(): %q", err.String())
	}
}

func TestWithFileAndPosition(t *testing.T) {
	orig := NewSimple(ClassIO, "failed")
	withFile := orig.WithFile("a.grad")
	moved := withFile.WithPosition(2, 4)

	if orig.File != "" || orig.Line != 0 {
		t.Error("WithFile/WithPosition must not modify the receiver")
	}
	if moved.File != "a.grad" || moved.Line != 2 || moved.Column != 4 {
		t.Errorf("unexpected copy: %+v", moved)
	}
}

func TestToJSON(t *testing.T) {
	err := NewWithPosition("NUM-0003", 1, 5, map[string]any{"Value": -4})
	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatalf("ToJSON failed: %v", jerr)
	}

	var decoded map[string]any
	if jerr := json.Unmarshal(data, &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["class"] != "numeric" || decoded["code"] != "NUM-0003" {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kmeans", "kmeans", 0},
		{"kmean", "kmeans", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := levenshteinDistance(tt.a, tt.b); got != tt.want {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"model", "centroids", "labels", "x"}

	tests := []struct {
		input string
		want  string
	}{
		{"modle", "model"},
		{"centriods", "centroids"},
		{"label", "labels"},
		{"model", ""},     // exact match is not a suggestion
		{"zzzzzzz", ""},   // too far
		{"y", "x"},        // single edit on a short word
		{"", ""},          // empty input
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FindClosestMatch(tt.input, candidates); got != tt.want {
				t.Errorf("FindClosestMatch(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewUndefinedIdentifier(t *testing.T) {
	err := NewUndefinedIdentifier("modle", []string{"model", "data"})
	if err.Class != ClassUndefined {
		t.Errorf("Class = %q, want undefined", err.Class)
	}
	if len(err.Hints) != 1 || err.Hints[0] != "Did you mean `model`?" {
		t.Errorf("unexpected hints: %v", err.Hints)
	}

	err = NewUndefinedFunction("qwerty", []string{"square"})
	if len(err.Hints) != 0 {
		t.Errorf("expected no hints, got %v", err.Hints)
	}
	if err.Message != "function not found: qwerty" {
		t.Errorf("unexpected message %q", err.Message)
	}
}
