package evaluator

import (
	"fmt"
)

// evalPlot renders through the plot sink. Failures do not stop the program:
// they come back as a "plot error: ..." string.
func evalPlot(function string, args []Object, env *Environment) Object {
	text, err := renderPlot(function, args, env)
	if err != nil {
		return &String{Value: "plot error: " + err.Error()}
	}
	env.Logger.Chart(function, text)
	return UNIT
}

func renderPlot(function string, args []Object, env *Environment) (string, error) {
	if env.Plotter == nil {
		return "", fmt.Errorf("no plotter configured")
	}

	first, err := series(args[0])
	if err != nil {
		return "", fmt.Errorf("%s: %w", function, err)
	}

	switch function {
	case "plot":
		return env.Plotter.Plot(first)
	case "histogram":
		return env.Plotter.Histogram(first)
	case "scatter":
		ys, err := series(args[1])
		if err != nil {
			return "", fmt.Errorf("%s: %w", function, err)
		}
		return env.Plotter.Scatter(first, ys)
	}
	return "", fmt.Errorf("unknown plot %q", function)
}

// series flattens a list of numbers, or a matrix with a single row or column.
func series(obj Object) ([]float64, error) {
	switch v := obj.(type) {
	case *List:
		out := make([]float64, len(v.Elements))
		for i, el := range v.Elements {
			if !isNumber(el) {
				return nil, fmt.Errorf("element %d is %s, want a number", i, typeName(el))
			}
			out[i] = toFloat(el)
		}
		return out, nil
	case *Matrix:
		rows, cols := v.Dims()
		if rows != 1 && cols != 1 {
			return nil, fmt.Errorf("cannot plot a %s matrix as one series", v.Shape())
		}
		var out []float64
		for _, row := range v.Float64s() {
			out = append(out, row...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot plot %s", typeName(obj))
}
