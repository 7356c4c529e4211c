package evaluator

import (
	"math"
	"math/bits"
)

// Binary operator symbols.
const (
	opAdd = "+"
	opSub = "-"
	opMul = "*"
	opDiv = "/"
	opMod = "%"
	opPow = "^"
)

func add(a, b Object) Object      { return arithmetic(opAdd, a, b) }
func subtract(a, b Object) Object { return arithmetic(opSub, a, b) }
func multiply(a, b Object) Object { return arithmetic(opMul, a, b) }
func divide(a, b Object) Object   { return arithmetic(opDiv, a, b) }
func modulo(a, b Object) Object   { return arithmetic(opMod, a, b) }
func power(a, b Object) Object    { return arithmetic(opPow, a, b) }

// arithmetic applies a binary operator, broadcasting scalars over lists and
// matrices and pairing equal-shaped aggregates elementwise.
func arithmetic(op string, left, right Object) Object {
	switch {
	case isNumber(left) && isNumber(right):
		return numberOp(op, left, right)

	case left.Type() == STRING_OBJ && right.Type() == STRING_OBJ && op == opAdd:
		return &String{Value: left.(*String).Value + right.(*String).Value}

	case left.Type() == LIST_OBJ && right.Type() == LIST_OBJ:
		return listPairOp(op, left.(*List), right.(*List))

	case left.Type() == LIST_OBJ && isScalar(right):
		return mapList(left.(*List), func(el Object) Object { return arithmetic(op, el, right) })

	case isScalar(left) && right.Type() == LIST_OBJ:
		return mapList(right.(*List), func(el Object) Object { return arithmetic(op, left, el) })

	case left.Type() == MATRIX_OBJ && right.Type() == MATRIX_OBJ:
		return matrixPairOp(op, left.(*Matrix), right.(*Matrix))

	case left.Type() == MATRIX_OBJ && isNumber(right):
		return mapMatrix(left.(*Matrix), func(el Object) Object { return numberOp(op, el, right) })

	case isNumber(left) && right.Type() == MATRIX_OBJ:
		return mapMatrix(right.(*Matrix), func(el Object) Object { return numberOp(op, left, el) })
	}

	return newStructuredError("TYPE-0001", map[string]any{
		"Operator": op,
		"Left":     typeName(left),
		"Right":    typeName(right),
	})
}

func numberOp(op string, left, right Object) Object {
	li, lInt := left.(*Integer)
	ri, rInt := right.(*Integer)
	if lInt && rInt {
		return integerOp(op, li.Value, ri.Value)
	}
	return floatOp(op, toFloat(left), toFloat(right))
}

func integerOp(op string, a, b int64) Object {
	switch op {
	case opAdd:
		sum, ok := addInt(a, b)
		if !ok {
			return overflow(op, a, b)
		}
		return &Integer{Value: sum}
	case opSub:
		diff := a - b
		if (a >= 0) != (b >= 0) && (diff >= 0) != (a >= 0) {
			return overflow(op, a, b)
		}
		return &Integer{Value: diff}
	case opMul:
		product, ok := mulInt(a, b)
		if !ok {
			return overflow(op, a, b)
		}
		return &Integer{Value: product}
	case opDiv:
		if b == 0 {
			return newStructuredError("NUM-0001", nil)
		}
		return &Float{Value: float64(a) / float64(b)}
	case opMod:
		if b == 0 {
			return newStructuredError("NUM-0002", nil)
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return &Integer{Value: m}
	case opPow:
		if b < 0 {
			return &Float{Value: math.Pow(float64(a), float64(b))}
		}
		result, ok := intPow(a, b)
		if !ok {
			return overflow(op, a, b)
		}
		return &Integer{Value: result}
	}
	return unknownOperator(op)
}

func overflow(op string, a, b int64) *Error {
	return newStructuredError("NUM-0005", map[string]any{"Operator": op, "Left": a, "Right": b})
}

func addInt(a, b int64) (int64, bool) {
	sum := a + b
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		return 0, false
	}
	return sum, true
}

// mulInt multiplies a and b, reporting false when the product does not fit
// in an int64.
func mulInt(a, b int64) (int64, bool) {
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(absUint(a), absUint(b))
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return int64(-lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

func absUint(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

func floatOp(op string, a, b float64) Object {
	switch op {
	case opAdd:
		return &Float{Value: a + b}
	case opSub:
		return &Float{Value: a - b}
	case opMul:
		return &Float{Value: a * b}
	case opDiv:
		if b == 0 {
			return newStructuredError("NUM-0001", nil)
		}
		return &Float{Value: a / b}
	case opMod:
		if b == 0 {
			return newStructuredError("NUM-0002", nil)
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return &Float{Value: m}
	case opPow:
		return &Float{Value: math.Pow(a, b)}
	}
	return unknownOperator(op)
}

// intPow is exponentiation by squaring; b >= 0. It reports false on
// overflow.
func intPow(a, b int64) (int64, bool) {
	result := int64(1)
	ok := true
	for b > 0 {
		if b&1 == 1 {
			if result, ok = mulInt(result, a); !ok {
				return 0, false
			}
		}
		b >>= 1
		if b > 0 {
			if a, ok = mulInt(a, a); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

func unknownOperator(op string) *Error {
	return newStructuredError("OP-0001", map[string]any{"Operator": op, "Type": "number"})
}

func listPairOp(op string, left, right *List) Object {
	if len(left.Elements) != len(right.Elements) {
		return newStructuredError("SHAPE-0002", map[string]any{
			"Operator": op,
			"Left":     len(left.Elements),
			"Right":    len(right.Elements),
		})
	}
	out := make([]Object, len(left.Elements))
	for i := range left.Elements {
		v := arithmetic(op, left.Elements[i], right.Elements[i])
		if isError(v) {
			return v
		}
		out[i] = v
	}
	return &List{Elements: out}
}

func matrixPairOp(op string, left, right *Matrix) Object {
	lr, lc := left.Dims()
	rr, rc := right.Dims()
	if lr != rr || lc != rc {
		return newStructuredError("SHAPE-0003", map[string]any{
			"Operator": op,
			"Left":     left.Shape(),
			"Right":    right.Shape(),
		})
	}
	rows := make([][]Object, lr)
	for i := range rows {
		rows[i] = make([]Object, lc)
		for j := range rows[i] {
			v := numberOp(op, left.Rows[i][j], right.Rows[i][j])
			if isError(v) {
				return v
			}
			rows[i][j] = v
		}
	}
	return &Matrix{Rows: rows}
}

func mapList(l *List, fn func(Object) Object) Object {
	out := make([]Object, len(l.Elements))
	for i, el := range l.Elements {
		v := fn(el)
		if isError(v) {
			return v
		}
		out[i] = v
	}
	return &List{Elements: out}
}

func mapMatrix(m *Matrix, fn func(Object) Object) Object {
	rows := make([][]Object, len(m.Rows))
	for i, row := range m.Rows {
		rows[i] = make([]Object, len(row))
		for j, el := range row {
			v := fn(el)
			if isError(v) {
				return v
			}
			rows[i][j] = v
		}
	}
	return &Matrix{Rows: rows}
}

// negate flips the sign of a number, or of every element of a list or matrix.
func negate(obj Object) Object {
	switch v := obj.(type) {
	case *Integer:
		if v.Value == math.MinInt64 {
			return newStructuredError("NUM-0005", map[string]any{"Operator": opSub, "Left": 0, "Right": v.Value})
		}
		return &Integer{Value: -v.Value}
	case *Float:
		return &Float{Value: -v.Value}
	case *List:
		return mapList(v, negate)
	case *Matrix:
		return mapMatrix(v, negate)
	}
	return newStructuredError("TYPE-0006", map[string]any{"Operator": opSub, "Got": typeName(obj)})
}

var trigFunctions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"sqrt": math.Sqrt,
}

// trigonometric applies sin, cos, tan or sqrt to a number, or elementwise to
// a list or matrix. The result is always Float.
func trigonometric(name string, x Object) Object {
	fn, ok := trigFunctions[name]
	if !ok {
		return newStructuredError("UNDEF-0002", map[string]any{"Name": name})
	}
	switch v := x.(type) {
	case *Integer, *Float:
		f := toFloat(v)
		if name == "sqrt" && f < 0 {
			return newStructuredError("NUM-0003", map[string]any{"Value": v.Inspect()})
		}
		return &Float{Value: fn(f)}
	case *List:
		return mapList(v, func(el Object) Object { return trigonometric(name, el) })
	case *Matrix:
		return mapMatrix(v, func(el Object) Object { return trigonometric(name, el) })
	}
	return newTypeError(name, "a number, list or matrix", x)
}

// compare evaluates a relational operator. Numbers, strings and booleans
// compare with their own kind; lists and matrices support only == and !=.
func compare(a, b Object, op string) Object {
	switch {
	case isNumber(a) && isNumber(b):
		return compareNumbers(a, b, op)

	case a.Type() == STRING_OBJ && b.Type() == STRING_OBJ:
		return compareOrdered(a.(*String).Value, b.(*String).Value, op)

	case a.Type() == b.Type():
		switch a.Type() {
		case BOOLEAN_OBJ, LIST_OBJ, MATRIX_OBJ:
			switch op {
			case "==":
				return nativeBoolToBooleanObject(valuesEqual(a, b))
			case "!=":
				return nativeBoolToBooleanObject(!valuesEqual(a, b))
			}
			return newStructuredError("OP-0001", map[string]any{"Operator": op, "Type": typeName(a)})
		}
	}

	return newStructuredError("TYPE-0002", map[string]any{
		"Left":  typeName(a),
		"Right": typeName(b),
	})
}

func compareNumbers(a, b Object, op string) Object {
	ai, aInt := a.(*Integer)
	bi, bInt := b.(*Integer)
	if aInt && bInt {
		return compareOrdered(ai.Value, bi.Value, op)
	}
	return compareOrdered(toFloat(a), toFloat(b), op)
}

func compareOrdered[T int64 | float64 | string](a, b T, op string) Object {
	switch op {
	case "==":
		return nativeBoolToBooleanObject(a == b)
	case "!=":
		return nativeBoolToBooleanObject(a != b)
	case "<":
		return nativeBoolToBooleanObject(a < b)
	case "<=":
		return nativeBoolToBooleanObject(a <= b)
	case ">":
		return nativeBoolToBooleanObject(a > b)
	case ">=":
		return nativeBoolToBooleanObject(a >= b)
	}
	return newStructuredError("OP-0001", map[string]any{"Operator": op, "Type": "ordered"})
}
