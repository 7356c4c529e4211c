package evaluator

import (
	"fmt"
	"math"

	"github.com/sambeau/gradient/pkg/gradient/ml"
)

// sampleShape records how model input was written, so outputs come back in
// the same shape.
type sampleShape int

const (
	shapeRows   sampleShape = iota // matrix: one sample per row
	shapeFlat                      // flat list of numbers
	shapeScalar                    // a lone number
)

// samples converts model input to rows. A flat list is a single sample when
// flatIsSample is set (autoencoder operations) and one single-feature sample
// per element otherwise.
func samples(function string, obj Object, flatIsSample bool) ([][]float64, sampleShape, *Error) {
	switch v := obj.(type) {
	case *Matrix:
		return v.Float64s(), shapeRows, nil

	case *Integer, *Float:
		return [][]float64{{toFloat(v)}}, shapeScalar, nil

	case *List:
		values := make([]float64, len(v.Elements))
		for i, el := range v.Elements {
			if !isNumber(el) {
				return nil, shapeFlat, newTypeError(function, "a list of numbers or a matrix", obj)
			}
			values[i] = toFloat(el)
		}
		if len(values) == 0 {
			return nil, shapeFlat, nil
		}
		if flatIsSample {
			return [][]float64{values}, shapeFlat, nil
		}
		rows := make([][]float64, len(values))
		for i, x := range values {
			rows[i] = []float64{x}
		}
		return rows, shapeFlat, nil
	}
	return nil, shapeRows, newTypeError(function, "a list of numbers or a matrix", obj)
}

func modelArg(function string, obj Object) (*Model, *Error) {
	m, ok := obj.(*Model)
	if !ok {
		return nil, newModelArgError(function, obj)
	}
	return m, nil
}

func integerArg(function string, obj Object) (int, *Error) {
	i, ok := obj.(*Integer)
	if !ok {
		return 0, newStructuredError("TYPE-0005", map[string]any{
			"Function": function,
			"Expected": "an integer",
			"Got":      typeName(obj),
		})
	}
	return int(i.Value), nil
}

// flatIsSample reports whether a flat list fed to m is one sample.
func flatIsSample(m *Model) bool {
	_, ok := m.Engine.(ml.Encoder)
	return ok
}

func floatList(values []float64) *List {
	out := make([]Object, len(values))
	for i, v := range values {
		out[i] = &Float{Value: v}
	}
	return &List{Elements: out}
}

// rowsToObject returns rows as a Matrix, or as a single List when the input
// was a single sample.
func rowsToObject(rows [][]float64, shape sampleShape) Object {
	if shape != shapeRows && len(rows) == 1 {
		return floatList(rows[0])
	}
	return matrixFromFloats(rows, false)
}

// predictionToObject shapes engine output: single-value rows collapse to a
// flat list (or a lone value for scalar input), and labels become Integers
// when every one is integral.
func predictionToObject(p ml.Prediction, shape sampleShape) Object {
	integers := p.Labels
	single := true
	for _, row := range p.Rows {
		if len(row) != 1 {
			single = false
		}
		for _, v := range row {
			if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
				integers = false
			}
		}
	}

	number := func(v float64) Object {
		if integers {
			return &Integer{Value: int64(v)}
		}
		return &Float{Value: v}
	}

	if !single {
		return matrixFromFloats(p.Rows, integers)
	}
	values := make([]Object, len(p.Rows))
	for i, row := range p.Rows {
		values[i] = number(row[0])
	}
	if shape == shapeScalar && len(values) == 1 {
		return values[0]
	}
	return &List{Elements: values}
}

func newLinearRegression(xObj, yObj Object, env *Environment) Object {
	const function = "linear_regression"
	X, _, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	Y, _, err := samples(function, yObj, false)
	if err != nil {
		return err
	}

	engine, e := ml.NewLinearRegression(env.Settings.LinearRegression)
	if e != nil {
		return kernelError(e, function)
	}
	if e := engine.Fit(X, Y); e != nil {
		return kernelError(e, function)
	}
	return &Model{Kind: ml.KindLinearRegression, Engine: engine}
}

func newMLPClassifier(xObj, yObj, hiddenObj Object, env *Environment) Object {
	const function = "mlp_classifier"
	X, _, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	Y, _, err := samples(function, yObj, false)
	if err != nil {
		return err
	}
	hidden, ok := hiddenObj.(*Integer)
	if !ok {
		return newTypeError(function, "an integer hidden size", hiddenObj)
	}

	engine, e := ml.NewMLPClassifier(int(hidden.Value), env.Settings.MLPClassifier)
	if e != nil {
		return kernelError(e, function)
	}
	if e := engine.Fit(X, Y); e != nil {
		return kernelError(e, function)
	}
	return &Model{Kind: ml.KindMLPClassifier, Engine: engine}
}

// architecture accepts one hidden size or a list of them.
func architecture(obj Object) ([]int, *Error) {
	const function = "neural_network"
	switch v := obj.(type) {
	case *Integer:
		return []int{int(v.Value)}, nil
	case *List:
		sizes := make([]int, len(v.Elements))
		for i, el := range v.Elements {
			n, ok := el.(*Integer)
			if !ok {
				return nil, newTypeError(function, "an integer or a list of integers", obj)
			}
			sizes[i] = int(n.Value)
		}
		return sizes, nil
	}
	return nil, newTypeError(function, "an integer or a list of integers", obj)
}

func newNeuralNetwork(xObj, yObj, archObj Object, env *Environment) Object {
	const function = "neural_network"
	X, _, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	Y, _, err := samples(function, yObj, false)
	if err != nil {
		return err
	}
	hidden, err := architecture(archObj)
	if err != nil {
		return err
	}

	engine, e := ml.NewNeuralNetwork(hidden, env.Settings.NeuralNetwork)
	if e != nil {
		return kernelError(e, function)
	}
	if e := engine.Fit(X, Y); e != nil {
		return kernelError(e, function)
	}
	return &Model{Kind: ml.KindNeuralNetwork, Engine: engine}
}

func newKMeans(xObj, kObj Object, env *Environment) Object {
	const function = "kmeans"
	X, _, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	k, err := integerArg(function, kObj)
	if err != nil {
		return err
	}

	engine, e := ml.NewKMeans(k, env.Settings.KMeans)
	if e != nil {
		return kernelError(e, function)
	}
	if e := engine.Fit(X); e != nil {
		return kernelError(e, function)
	}
	return &Model{Kind: ml.KindKMeans, Engine: engine}
}

// newAutoencoder sizes the input layer from the data: the row length of a
// matrix, or the length of a single flat sample.
func newAutoencoder(xObj, encObj Object, env *Environment) Object {
	const function = "autoencoder"
	X, _, err := samples(function, xObj, true)
	if err != nil {
		return err
	}
	if len(X) == 0 {
		return kernelError(fmt.Errorf("%s: %w", function, ml.ErrEmptyInput), function)
	}
	enc, err := integerArg(function, encObj)
	if err != nil {
		return err
	}

	engine, e := ml.NewAutoencoder(len(X[0]), enc, env.Settings.Autoencoder)
	if e != nil {
		return kernelError(e, function)
	}
	if e := engine.Fit(X); e != nil {
		return kernelError(e, function)
	}
	return &Model{Kind: ml.KindAutoencoder, Engine: engine}
}

func modelPredict(modelObj, xObj Object) Object {
	const function = "predict"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	predictor, ok := model.Engine.(ml.Predictor)
	if !ok {
		return newCapabilityError(model, function)
	}
	X, shape, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	p, e := predictor.Predict(X)
	if e != nil {
		return kernelError(e, function)
	}
	return predictionToObject(p, shape)
}

// trainingPair splits train data written as [X, y]. Two flat lists of equal
// length arrive as a two-row matrix and are split by row.
func trainingPair(data Object) (Object, Object, bool) {
	switch v := data.(type) {
	case *List:
		if len(v.Elements) == 2 {
			return v.Elements[0], v.Elements[1], true
		}
	case *Matrix:
		if len(v.Rows) == 2 {
			return &List{Elements: v.Rows[0]}, &List{Elements: v.Rows[1]}, true
		}
	}
	return nil, nil, false
}

// modelTrain refits model in place. Unsupervised engines train on data
// directly; supervised ones expect [X, y].
func modelTrain(modelObj, data Object) Object {
	const function = "train"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}

	switch engine := model.Engine.(type) {
	case ml.Trainer:
		X, _, err := samples(function, data, flatIsSample(model))
		if err != nil {
			return err
		}
		if e := engine.Train(X); e != nil {
			return kernelError(e, function)
		}

	case ml.SupervisedFitter:
		xObj, yObj, ok := trainingPair(data)
		if !ok {
			return newStructuredError("TYPE-0005", map[string]any{
				"Function": function,
				"Expected": "[X, y]",
				"Got":      typeName(data),
			})
		}
		X, _, err := samples(function, xObj, false)
		if err != nil {
			return err
		}
		Y, _, err := samples(function, yObj, false)
		if err != nil {
			return err
		}
		if e := engine.Fit(X, Y); e != nil {
			return kernelError(e, function)
		}

	default:
		return newCapabilityError(model, function)
	}
	return model
}

func modelFitPredict(modelObj, xObj Object) Object {
	const function = "fit_predict"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	clusterer, ok := model.Engine.(ml.Clusterer)
	if !ok {
		return newCapabilityError(model, function)
	}
	X, _, err := samples(function, xObj, false)
	if err != nil {
		return err
	}
	labels, e := clusterer.FitPredict(X)
	if e != nil {
		return kernelError(e, function)
	}
	out := make([]Object, len(labels))
	for i, l := range labels {
		out[i] = &Integer{Value: int64(l)}
	}
	return &List{Elements: out}
}

func modelCentroids(modelObj Object) Object {
	const function = "get_centroids"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	provider, ok := model.Engine.(ml.CentroidProvider)
	if !ok {
		return newCapabilityError(model, function)
	}
	centroids, e := provider.Centroids()
	if e != nil {
		return kernelError(e, function)
	}
	return matrixFromFloats(centroids, false)
}

// modelTransform serves encode, decode and reconstruct.
func modelTransform(function string, modelObj, xObj Object) Object {
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}

	var transform func([][]float64) ([][]float64, error)
	switch function {
	case "encode":
		if enc, ok := model.Engine.(ml.Encoder); ok {
			transform = enc.Encode
		}
	case "decode":
		if dec, ok := model.Engine.(ml.Decoder); ok {
			transform = dec.Decode
		}
	case "reconstruct":
		if rec, ok := model.Engine.(ml.Reconstructor); ok {
			transform = rec.Reconstruct
		}
	}
	if transform == nil {
		return newCapabilityError(model, function)
	}

	X, shape, err := samples(function, xObj, true)
	if err != nil {
		return err
	}
	rows, e := transform(X)
	if e != nil {
		return kernelError(e, function)
	}
	return rowsToObject(rows, shape)
}

func modelReconstructionError(modelObj, xObj Object) Object {
	const function = "reconstruction_error"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	scorer, ok := model.Engine.(ml.ReconstructionScorer)
	if !ok {
		return newCapabilityError(model, function)
	}
	X, _, err := samples(function, xObj, true)
	if err != nil {
		return err
	}
	score, e := scorer.ReconstructionError(X)
	if e != nil {
		return kernelError(e, function)
	}
	return &Float{Value: score}
}

func modelLossHistory(modelObj Object) Object {
	const function = "get_loss_history"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	reporter, ok := model.Engine.(ml.LossReporter)
	if !ok {
		return newCapabilityError(model, function)
	}
	if !model.Engine.Fitted() {
		return kernelError(fmt.Errorf("%s: %w", model.Kind, ml.ErrNotFitted), function)
	}
	return floatList(reporter.LossHistory())
}

func modelEncodingWeights(modelObj Object) Object {
	const function = "get_encoding_weights"
	model, err := modelArg(function, modelObj)
	if err != nil {
		return err
	}
	reporter, ok := model.Engine.(ml.WeightReporter)
	if !ok {
		return newCapabilityError(model, function)
	}
	weights, e := reporter.EncodingWeights()
	if e != nil {
		return kernelError(e, function)
	}
	return matrixFromFloats(weights, false)
}
