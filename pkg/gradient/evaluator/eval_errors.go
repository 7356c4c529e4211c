// eval_errors.go - Error creation helpers for the Gradient evaluator
//
// Kernels and sinks return plain Go errors wrapping sentinels; the helpers
// here turn them into catalog errors.

package evaluator

import (
	"errors"

	"github.com/sambeau/gradient/pkg/gradient/dataio"
	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
	"github.com/sambeau/gradient/pkg/gradient/linalg"
	"github.com/sambeau/gradient/pkg/gradient/ml"
)

// newStructuredError creates a structured error from the catalog.
func newStructuredError(code string, data map[string]any) *Error {
	gerr := gerrors.New(code, data)
	return &Error{
		Class:   gerr.Class,
		Code:    gerr.Code,
		Message: gerr.Message,
		Hints:   gerr.Hints,
		Data:    gerr.Data,
	}
}

// fromGradientError wraps an already built GradientError.
func fromGradientError(gerr *gerrors.GradientError) *Error {
	return &Error{
		Class:   gerr.Class,
		Code:    gerr.Code,
		Message: gerr.Message,
		Hints:   gerr.Hints,
		Line:    gerr.Line,
		Column:  gerr.Column,
		File:    gerr.File,
		Data:    gerr.Data,
	}
}

// withPosition adds line/column and file to an error that has none yet.
// Non-errors are returned unchanged.
func withPosition(obj Object, tok lexer.Token, env *Environment) Object {
	if err, ok := obj.(*Error); ok {
		if err.Line == 0 && err.Column == 0 {
			err.Line = tok.Line
			err.Column = tok.Column
		}
		if err.File == "" && env != nil {
			err.File = env.Filename
		}
	}
	return obj
}

func newTypeError(function, expected string, got Object) *Error {
	return newStructuredError("TYPE-0003", map[string]any{
		"Function": function,
		"Expected": expected,
		"Got":      typeName(got),
	})
}

func newModelArgError(function string, got Object) *Error {
	return newStructuredError("TYPE-0004", map[string]any{
		"Function": function,
		"Got":      typeName(got),
	})
}

func newCapabilityError(model *Model, operation string) *Error {
	return newStructuredError("CAP-0001", map[string]any{
		"Kind":      model.Kind,
		"Operation": operation,
	})
}

// kernelError maps linalg and ml errors to catalog codes.
func kernelError(err error, operation string) *Error {
	detail := map[string]any{"Detail": err.Error()}
	switch {
	case errors.Is(err, ml.ErrNotFitted):
		return newStructuredError("STATE-0001", map[string]any{
			"Detail":    err.Error(),
			"Operation": operation,
		})
	case errors.Is(err, linalg.ErrSingular):
		return newStructuredError("NUM-0004", detail)
	case errors.Is(err, linalg.ErrBadShape),
		errors.Is(err, linalg.ErrDimensionMismatch),
		errors.Is(err, linalg.ErrNotSquare),
		errors.Is(err, ml.ErrEmptyInput),
		errors.Is(err, ml.ErrTooFewSamples),
		errors.Is(err, ml.ErrLengthMismatch),
		errors.Is(err, ml.ErrDimension):
		return newStructuredError("SHAPE-0001", detail)
	default:
		return newStructuredError("ENGINE-0001", detail)
	}
}

// readError maps a FileSink read failure.
func readError(path string, err error) *Error {
	data := map[string]any{"Path": path, "GoError": err.Error()}
	if errors.Is(err, dataio.ErrFormat) {
		return newStructuredError("FORMAT-0001", data)
	}
	return newStructuredError("IO-0001", data)
}

// writeError maps a FileSink write failure.
func writeError(path string, content Object, err error) *Error {
	if errors.Is(err, dataio.ErrFormat) {
		return newStructuredError("FORMAT-0002", map[string]any{
			"Got":     typeName(content),
			"Path":    path,
			"GoError": err.Error(),
		})
	}
	return newStructuredError("IO-0002", map[string]any{"Path": path, "GoError": err.Error()})
}
