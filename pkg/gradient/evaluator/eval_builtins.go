package evaluator

import (
	"fmt"

	"github.com/sambeau/gradient/pkg/gradient/ast"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
)

// evalBuiltin evaluates the arguments of a keyword built-in and dispatches
// on its token. Argument counts were checked by the parser.
func evalBuiltin(node *ast.BuiltinCall, env *Environment) Object {
	args := make([]Object, 0, len(node.Arguments))
	for _, a := range node.Arguments {
		val := Eval(a, env)
		if isError(val) {
			return val
		}
		args = append(args, val)
	}

	name := node.Token.Literal
	var result Object

	switch node.Token.Type {
	// Models
	case lexer.LINEAR_REGRESSION:
		result = newLinearRegression(args[0], args[1], env)
	case lexer.MLP_CLASSIFIER:
		result = newMLPClassifier(args[0], args[1], args[2], env)
	case lexer.NEURAL_NETWORK:
		result = newNeuralNetwork(args[0], args[1], args[2], env)
	case lexer.KMEANS:
		result = newKMeans(args[0], args[1], env)
	case lexer.AUTOENCODER:
		result = newAutoencoder(args[0], args[1], env)
	case lexer.PREDICT:
		result = modelPredict(args[0], args[1])
	case lexer.TRAIN:
		result = modelTrain(args[0], args[1])
	case lexer.FIT_PREDICT:
		result = modelFitPredict(args[0], args[1])
	case lexer.GET_CENTROIDS:
		result = modelCentroids(args[0])
	case lexer.ENCODE, lexer.DECODE, lexer.RECONSTRUCT:
		result = modelTransform(name, args[0], args[1])
	case lexer.RECONSTRUCTION_ERROR:
		result = modelReconstructionError(args[0], args[1])
	case lexer.GET_LOSS_HISTORY:
		result = modelLossHistory(args[0])
	case lexer.GET_ENCODING_WEIGHTS:
		result = modelEncodingWeights(args[0])

	// Matrix algebra
	case lexer.TRANSPOSE:
		result = matrixTranspose(args[0])
	case lexer.INVERSE:
		result = matrixInverse(args[0])
	case lexer.MATMULT:
		result = matrixMultiply(args[0], args[1])
	case lexer.MATADD, lexer.MATSUB:
		result = matrixAddSub(name, args[0], args[1])

	// IO
	case lexer.PRINT:
		result = evalPrint(args[0], env, node.Token.Line)
	case lexer.READ_FILE:
		result = evalReadFile(args[0], env)
	case lexer.WRITE_FILE:
		result = evalWriteFile(args[0], args[1], env, node.Token.Line)

	// Plots
	case lexer.PLOT, lexer.SCATTER, lexer.HISTOGRAM:
		result = evalPlot(name, args, env)

	// Trigonometry
	case lexer.SIN, lexer.COS, lexer.TAN, lexer.SQRT:
		result = trigonometric(name, args[0])

	default:
		result = newStructuredError("UNDEF-0002", map[string]any{"Name": name})
	}

	if trainingBuiltins[node.Token.Type] && !isError(result) {
		model, ok := result.(*Model)
		if !ok {
			model, ok = args[0].(*Model)
		}
		if ok {
			record(env, EventTrain, model.Engine.Describe(), node.Token.Line)
		}
	}

	return withPosition(result, node.Token, env)
}

// trainingBuiltins fit an engine; each success is a run-log event.
var trainingBuiltins = map[lexer.TokenType]bool{
	lexer.LINEAR_REGRESSION: true,
	lexer.MLP_CLASSIFIER:    true,
	lexer.NEURAL_NETWORK:    true,
	lexer.KMEANS:            true,
	lexer.AUTOENCODER:       true,
	lexer.TRAIN:             true,
	lexer.FIT_PREDICT:       true,
}

// record writes to the run log when one is attached. A failed write is
// reported as a warning and the program carries on.
func record(env *Environment, kind, detail string, line int) {
	if env.RunLog == nil {
		return
	}
	if err := env.RunLog.Record(kind, detail, line); err != nil && env.Warnings != nil {
		fmt.Fprintf(env.Warnings, "[WARN] run log: %v\n", err)
	}
}
