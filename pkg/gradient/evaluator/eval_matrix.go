package evaluator

import (
	"github.com/sambeau/gradient/pkg/gradient/linalg"
)

// toDense converts a Matrix argument for the linalg kernel.
func toDense(function string, obj Object) (*linalg.Dense, *Error) {
	m, ok := obj.(*Matrix)
	if !ok {
		return nil, newTypeError(function, "a matrix", obj)
	}
	d, err := linalg.New(m.Float64s())
	if err != nil {
		return nil, kernelError(err, function)
	}
	return d, nil
}

func fromDense(d *linalg.Dense) *Matrix {
	return matrixFromFloats(d.RowSlices(), false)
}

func integerOperands(objs ...Object) bool {
	for _, obj := range objs {
		if m, ok := obj.(*Matrix); !ok || !m.IntegersOnly() {
			return false
		}
	}
	return true
}

// Integer matrices stay on exact int64 paths for transpose, matmult, matadd
// and matsub; linalg works in float64 and only checks their shapes.

func matrixTranspose(obj Object) Object {
	if integerOperands(obj) {
		return transposeObjects(obj.(*Matrix))
	}
	d, err := toDense("transpose", obj)
	if err != nil {
		return err
	}
	return fromDense(linalg.Transpose(d))
}

func transposeObjects(m *Matrix) *Matrix {
	r, c := m.Dims()
	rows := make([][]Object, c)
	for j := range rows {
		rows[j] = make([]Object, r)
		for i := range r {
			rows[j][i] = m.Rows[i][j]
		}
	}
	return &Matrix{Rows: rows}
}

// matrixInverse always yields Float elements.
func matrixInverse(obj Object) Object {
	d, err := toDense("inverse", obj)
	if err != nil {
		return err
	}
	inv, ierr := linalg.Inverse(d)
	if ierr != nil {
		return kernelError(ierr, "inverse")
	}
	return fromDense(inv)
}

func matrixMultiply(a, b Object) Object {
	da, err := toDense("matmult", a)
	if err != nil {
		return err
	}
	db, err := toDense("matmult", b)
	if err != nil {
		return err
	}
	product, merr := linalg.Multiply(da, db)
	if merr != nil {
		return kernelError(merr, "matmult")
	}
	if integerOperands(a, b) {
		return integerProduct(a.(*Matrix), b.(*Matrix))
	}
	return fromDense(product)
}

// integerProduct multiplies shape-checked integer matrices, failing with
// NUM-0005 when a product or running sum leaves the int64 range.
func integerProduct(a, b *Matrix) Object {
	n, inner := a.Dims()
	_, m := b.Dims()
	rows := make([][]Object, n)
	for i := range rows {
		rows[i] = make([]Object, m)
		for j := range m {
			var sum int64
			for k := range inner {
				x, y := a.Rows[i][k].(*Integer).Value, b.Rows[k][j].(*Integer).Value
				product, ok := mulInt(x, y)
				if !ok {
					return overflow(opMul, x, y)
				}
				next, ok := addInt(sum, product)
				if !ok {
					return overflow(opAdd, sum, product)
				}
				sum = next
			}
			rows[i][j] = &Integer{Value: sum}
		}
	}
	return &Matrix{Rows: rows}
}

func matrixAddSub(function string, a, b Object) Object {
	da, err := toDense(function, a)
	if err != nil {
		return err
	}
	db, err := toDense(function, b)
	if err != nil {
		return err
	}

	op := linalg.Add
	if function == "matsub" {
		op = linalg.Sub
	}
	result, oerr := op(da, db)
	if oerr != nil {
		return kernelError(oerr, function)
	}
	if integerOperands(a, b) {
		sym := opAdd
		if function == "matsub" {
			sym = opSub
		}
		return matrixPairOp(sym, a.(*Matrix), b.(*Matrix))
	}
	return fromDense(result)
}
