package evaluator

import (
	"fmt"

	"github.com/sambeau/gradient/pkg/gradient/dataio"
)

func evalPrint(value Object, env *Environment, line int) Object {
	text := value.Inspect()
	env.Logger.Print(text)
	record(env, EventPrint, text, line)
	return UNIT
}

func fileNameArg(function string, obj Object) (string, *Error) {
	s, ok := obj.(*String)
	if !ok {
		return "", newTypeError(function, "a file name string", obj)
	}
	return s.Value, nil
}

func evalReadFile(nameObj Object, env *Environment) Object {
	name, err := fileNameArg("read_file", nameObj)
	if err != nil {
		return err
	}
	if env.Files == nil {
		return readError(name, fmt.Errorf("no file sink configured"))
	}
	data, e := env.Files.Read(name)
	if e != nil {
		return readError(name, e)
	}
	obj, e := FromNative(data)
	if e != nil {
		return readError(name, fmt.Errorf("%v: %w", e, dataio.ErrFormat))
	}
	return obj
}

func evalWriteFile(nameObj, content Object, env *Environment, line int) Object {
	name, err := fileNameArg("write_file", nameObj)
	if err != nil {
		return err
	}
	if env.Files == nil {
		return writeError(name, content, fmt.Errorf("no file sink configured"))
	}
	data, e := ToNative(content)
	if e != nil {
		return writeError(name, content, fmt.Errorf("%v: %w", e, dataio.ErrFormat))
	}
	if e := env.Files.Write(name, data); e != nil {
		return writeError(name, content, e)
	}
	record(env, EventWrite, name, line)
	return UNIT
}

// ToNative converts a value to plain Go data: int64, float64, string, bool,
// []any for lists and [][]any for matrices.
func ToNative(obj Object) (any, error) {
	switch v := obj.(type) {
	case *Integer:
		return v.Value, nil
	case *Float:
		return v.Value, nil
	case *String:
		return v.Value, nil
	case *Boolean:
		return v.Value, nil
	case *List:
		out := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			n, err := ToNative(el)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *Matrix:
		out := make([][]any, len(v.Rows))
		for i, row := range v.Rows {
			out[i] = make([]any, len(row))
			for j, el := range row {
				n, err := ToNative(el)
				if err != nil {
					return nil, err
				}
				out[i][j] = n
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s values cannot be stored", typeName(obj))
}

// FromNative converts plain Go data back to a value. Nested slices go
// through the same list/matrix rule as bracket literals.
func FromNative(data any) (Object, error) {
	switch v := data.(type) {
	case nil:
		return UNIT, nil
	case int:
		return &Integer{Value: int64(v)}, nil
	case int64:
		return &Integer{Value: v}, nil
	case float64:
		return &Float{Value: v}, nil
	case string:
		return &String{Value: v}, nil
	case bool:
		return nativeBoolToBooleanObject(v), nil
	case []float64:
		return floatList(v), nil
	case [][]float64:
		if len(v) == 0 {
			return &List{Elements: []Object{}}, nil
		}
		m := matrixFromFloats(v, false)
		if _, err := NewMatrix(m.Rows); err != nil {
			return nil, err
		}
		return m, nil
	case [][]any:
		rows := make([]any, len(v))
		for i, row := range v {
			rows[i] = row
		}
		return FromNative(rows)
	case []any:
		elements := make([]Object, len(v))
		for i, el := range v {
			obj, err := FromNative(el)
			if err != nil {
				return nil, err
			}
			elements[i] = obj
		}
		return buildSequence(elements)
	}
	return nil, fmt.Errorf("unsupported data of type %T", data)
}
