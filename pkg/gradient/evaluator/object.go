package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/linalg"
	"github.com/sambeau/gradient/pkg/gradient/ml"
)

// ObjectType represents the type of objects in our language
type ObjectType string

const (
	INTEGER_OBJ = "INTEGER"
	FLOAT_OBJ   = "FLOAT"
	BOOLEAN_OBJ = "BOOLEAN"
	STRING_OBJ  = "STRING"
	LIST_OBJ    = "LIST"
	MATRIX_OBJ  = "MATRIX"
	MODEL_OBJ   = "MODEL"
	UNIT_OBJ    = "UNIT"
	RETURN_OBJ  = "RETURN_VALUE"
	ERROR_OBJ   = "ERROR"
)

// Object represents all values in our language
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Integer represents integer objects
type Integer struct {
	Value int64
}

func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) Type() ObjectType { return INTEGER_OBJ }

// Float represents floating-point objects
type Float struct {
	Value float64
}

func (f *Float) Inspect() string  { return formatFloat(f.Value) }
func (f *Float) Type() ObjectType { return FLOAT_OBJ }

// formatFloat always shows a fractional part or an exponent, so 2.0 never
// reads as the integer 2.
func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Boolean represents boolean objects
type Boolean struct {
	Value bool
}

func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }

// String represents string objects
type String struct {
	Value string
}

func (s *String) Inspect() string  { return s.Value }
func (s *String) Type() ObjectType { return STRING_OBJ }

// List is an ordered, possibly heterogeneous sequence.
type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	elements := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		elements[i] = inspectElement(e)
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// inspectElement quotes strings nested inside lists so ["1"] and [1] differ.
func inspectElement(obj Object) string {
	if s, ok := obj.(*String); ok {
		return strconv.Quote(s.Value)
	}
	return obj.Inspect()
}

// Matrix is a rectangular grid of Integer and Float elements. Build one with
// NewMatrix.
type Matrix struct {
	Rows [][]Object
}

func (m *Matrix) Type() ObjectType { return MATRIX_OBJ }
func (m *Matrix) Inspect() string {
	rows := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.Inspect()
		}
		rows[i] = "[" + strings.Join(cells, ", ") + "]"
	}
	return "[" + strings.Join(rows, ", ") + "]"
}

// NewMatrix validates rows and wraps them. Every row must have the same
// non-zero length and hold only numbers.
func NewMatrix(rows [][]Object) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("matrix needs at least one row: %w", linalg.ErrBadShape)
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("matrix rows cannot be empty: %w", linalg.ErrBadShape)
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("matrix row %d has %d elements, want %d: %w", i, len(row), width, linalg.ErrBadShape)
		}
		for j, v := range row {
			if !isNumber(v) {
				return nil, fmt.Errorf("matrix element [%d][%d] is %s, want a number: %w",
					i, j, typeName(v), linalg.ErrBadShape)
			}
		}
	}
	return &Matrix{Rows: rows}, nil
}

// Dims returns the row and column counts.
func (m *Matrix) Dims() (int, int) { return len(m.Rows), len(m.Rows[0]) }

// Shape renders the dimensions as "RxC".
func (m *Matrix) Shape() string {
	r, c := m.Dims()
	return fmt.Sprintf("%dx%d", r, c)
}

// Float64s copies the elements out as float64 rows.
func (m *Matrix) Float64s() [][]float64 {
	out := make([][]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = toFloat(v)
		}
	}
	return out
}

// IntegersOnly reports whether every element is an Integer.
func (m *Matrix) IntegersOnly() bool {
	for _, row := range m.Rows {
		for _, v := range row {
			if _, ok := v.(*Integer); !ok {
				return false
			}
		}
	}
	return true
}

// matrixFromFloats wraps float rows. With integers set, each element becomes
// an Integer; callers only set it when every value is integral and within
// ±2^53.
func matrixFromFloats(rows [][]float64, integers bool) *Matrix {
	out := make([][]Object, len(rows))
	for i, row := range rows {
		out[i] = make([]Object, len(row))
		for j, v := range row {
			if integers {
				out[i][j] = &Integer{Value: int64(math.Round(v))}
			} else {
				out[i][j] = &Float{Value: v}
			}
		}
	}
	return &Matrix{Rows: out}
}

// Model is a handle to one engine instance.
type Model struct {
	Kind   string
	Engine ml.Engine
}

func (m *Model) Type() ObjectType { return MODEL_OBJ }
func (m *Model) Inspect() string  { return "<model " + m.Engine.Describe() + ">" }

// clone gives the copy stored when a model is bound to a name.
func (m *Model) clone() *Model {
	return &Model{Kind: m.Kind, Engine: m.Engine.Clone()}
}

// Unit is the absence of a value.
type Unit struct{}

func (u *Unit) Inspect() string  { return "unit" }
func (u *Unit) Type() ObjectType { return UNIT_OBJ }

// ReturnValue wraps the value of a pending return
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// Error represents a propagating runtime error.
type Error struct {
	Message string
	Line    int
	Column  int
	Class   gerrors.ErrorClass
	Code    string
	Hints   []string
	File    string
	Data    map[string]any
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return "ERROR: " + e.Message
}

// ToGradientError converts this Error to a GradientError.
func (e *Error) ToGradientError() *gerrors.GradientError {
	class := e.Class
	if class == "" {
		class = gerrors.ClassType
	}
	return &gerrors.GradientError{
		Class:   class,
		Code:    e.Code,
		Message: e.Message,
		Hints:   e.Hints,
		Line:    e.Line,
		Column:  e.Column,
		File:    e.File,
		Data:    e.Data,
	}
}

var (
	UNIT  = &Unit{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func isNumber(obj Object) bool {
	switch obj.(type) {
	case *Integer, *Float:
		return true
	}
	return false
}

func isScalar(obj Object) bool {
	switch obj.(type) {
	case *Integer, *Float, *Boolean, *String:
		return true
	}
	return false
}

// toFloat converts an Integer or Float; anything else is 0.
func toFloat(obj Object) float64 {
	switch v := obj.(type) {
	case *Integer:
		return float64(v.Value)
	case *Float:
		return v.Value
	}
	return 0
}

func typeName(obj Object) string {
	if obj == nil {
		return "nothing"
	}
	return gerrors.TypeName(string(obj.Type()))
}

func isError(obj Object) bool {
	if obj != nil {
		return obj.Type() == ERROR_OBJ
	}
	return false
}

// isTruthy: booleans as-is, numbers when non-zero, strings and lists when
// non-empty, unit never, everything else always.
func isTruthy(obj Object) bool {
	switch v := obj.(type) {
	case *Boolean:
		return v.Value
	case *Integer:
		return v.Value != 0
	case *Float:
		return v.Value != 0
	case *String:
		return v.Value != ""
	case *List:
		return len(v.Elements) > 0
	case *Unit:
		return false
	case nil:
		return false
	}
	return true
}

// buildSequence applies the list/matrix rule to evaluated bracket contents:
// all scalars give a List, all lists give a Matrix, anything else a List.
func buildSequence(elements []Object) (Object, error) {
	if len(elements) == 0 {
		return &List{Elements: []Object{}}, nil
	}
	allScalars, allLists := true, true
	for _, el := range elements {
		if !isScalar(el) {
			allScalars = false
		}
		if _, ok := el.(*List); !ok {
			allLists = false
		}
	}
	if allScalars || !allLists {
		return &List{Elements: elements}, nil
	}
	rows := make([][]Object, len(elements))
	for i, el := range elements {
		rows[i] = el.(*List).Elements
	}
	m, err := NewMatrix(rows)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// valuesEqual is structural equality; Integer and Float compare by value.
func valuesEqual(a, b Object) bool {
	if isNumber(a) && isNumber(b) {
		ai, aInt := a.(*Integer)
		bi, bInt := b.(*Integer)
		if aInt && bInt {
			return ai.Value == bi.Value
		}
		return toFloat(a) == toFloat(b)
	}
	switch av := a.(type) {
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !valuesEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Matrix:
		bv, ok := b.(*Matrix)
		if !ok || len(av.Rows) != len(bv.Rows) {
			return false
		}
		for i := range av.Rows {
			if len(av.Rows[i]) != len(bv.Rows[i]) {
				return false
			}
			for j := range av.Rows[i] {
				if !valuesEqual(av.Rows[i][j], bv.Rows[i][j]) {
					return false
				}
			}
		}
		return true
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Model:
		bv, ok := b.(*Model)
		return ok && av == bv
	}
	return false
}
