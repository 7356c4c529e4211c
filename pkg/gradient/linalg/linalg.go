// Package linalg implements the dense matrix algebra used by Gradient
// programs: construction with shape validation, transpose, multiply,
// elementwise add/subtract and Gauss-Jordan inversion.
//
// All operations are pure: operands are never mutated and every result is a
// fresh Dense. Errors wrap one of the package sentinels as "<Op>: <cause>",
// so callers classify them with errors.Is.
package linalg

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	ErrBadShape          = errors.New("rows must be non-empty and of equal non-zero length")
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrNotSquare         = errors.New("matrix is not square")
	ErrSingular          = errors.New("matrix is singular")
)

// PivotTolerance is the smallest pivot magnitude Inverse accepts.
const PivotTolerance = 1e-10

// Operation tags used in wrapped errors.
const (
	opNew      = "New"
	opMultiply = "Multiply"
	opAdd      = "Add"
	opSub      = "Sub"
	opInverse  = "Inverse"
)

// opErrorf wraps err with an operation tag, preserving it for errors.Is.
func opErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Dense is a row-major rows×cols matrix of float64.
type Dense struct {
	rows, cols int
	data       []float64
}

// New builds a Dense from row slices, validating that there is at least one
// row and that all rows share the same non-zero length.
func New(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, opErrorf(opNew, ErrBadShape)
	}
	cols := len(rows[0])
	m := zeros(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, opErrorf(opNew, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrBadShape))
		}
		copy(m.data[i*cols:(i+1)*cols], row)
	}
	return m, nil
}

func zeros(rows, cols int) *Dense {
	return &Dense{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.cols }

// At returns element (i, j). It panics on out-of-range indices like a slice.
func (m *Dense) At(i, j int) float64 { return m.data[i*m.cols+j] }

// Shape renders the dimensions as "RxC".
func (m *Dense) Shape() string { return fmt.Sprintf("%dx%d", m.rows, m.cols) }

// RowSlices returns a deep copy of the matrix as row slices.
func (m *Dense) RowSlices() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = append([]float64(nil), m.data[i*m.cols:(i+1)*m.cols]...)
	}
	return out
}

// Transpose swaps rows and columns.
func Transpose(m *Dense) *Dense {
	out := zeros(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return out
}

// Multiply returns the matrix product a·b. a.Cols() must equal b.Rows().
func Multiply(a, b *Dense) (*Dense, error) {
	if a.cols != b.rows {
		return nil, opErrorf(opMultiply, fmt.Errorf("%s × %s: %w", a.Shape(), b.Shape(), ErrDimensionMismatch))
	}
	out := zeros(a.rows, b.cols)
	// i-k-j order keeps the inner loop on contiguous rows of b and out
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			aik := a.data[i*a.cols+k]
			if aik == 0 {
				continue
			}
			for j := 0; j < b.cols; j++ {
				out.data[i*b.cols+j] += aik * b.data[k*b.cols+j]
			}
		}
	}
	return out, nil
}

// Add returns a + b elementwise. Shapes must match.
func Add(a, b *Dense) (*Dense, error) {
	return addSub(opAdd, a, b, 1)
}

// Sub returns a - b elementwise. Shapes must match.
func Sub(a, b *Dense) (*Dense, error) {
	return addSub(opSub, a, b, -1)
}

func addSub(tag string, a, b *Dense, sign float64) (*Dense, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, opErrorf(tag, fmt.Errorf("%s vs %s: %w", a.Shape(), b.Shape(), ErrDimensionMismatch))
	}
	out := zeros(a.rows, a.cols)
	for i := range a.data {
		out.data[i] = a.data[i] + sign*b.data[i]
	}
	return out, nil
}

// Inverse computes m⁻¹ by Gauss-Jordan elimination with partial pivoting.
// It fails with ErrNotSquare for non-square input and ErrSingular when the
// largest available pivot in some column is at most PivotTolerance.
func Inverse(m *Dense) (*Dense, error) {
	if m.rows != m.cols {
		return nil, opErrorf(opInverse, fmt.Errorf("%s: %w", m.Shape(), ErrNotSquare))
	}
	n := m.rows

	// Augmented [A | I], width 2n.
	w := 2 * n
	aug := make([]float64, n*w)
	for i := 0; i < n; i++ {
		copy(aug[i*w:i*w+n], m.data[i*n:(i+1)*n])
		aug[i*w+n+i] = 1
	}

	for col := 0; col < n; col++ {
		pivotRow := col
		best := math.Abs(aug[col*w+col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r*w+col]); v > best {
				best, pivotRow = v, r
			}
		}
		if best <= PivotTolerance {
			return nil, opErrorf(opInverse, ErrSingular)
		}

		if pivotRow != col {
			for j := 0; j < w; j++ {
				aug[col*w+j], aug[pivotRow*w+j] = aug[pivotRow*w+j], aug[col*w+j]
			}
		}

		pivot := aug[col*w+col]
		for j := 0; j < w; j++ {
			aug[col*w+j] /= pivot
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r*w+col]
			if factor == 0 {
				continue
			}
			for j := 0; j < w; j++ {
				aug[r*w+j] -= factor * aug[col*w+j]
			}
		}
	}

	out := zeros(n, n)
	for i := 0; i < n; i++ {
		copy(out.data[i*n:(i+1)*n], aug[i*w+n:(i+1)*w])
	}
	return out, nil
}
