// Package evaluator walks a Gradient AST. It owns the value model, the
// environment, the arithmetic kernel and the dispatch of keyword built-ins
// to the linalg and ml packages and to the file, plot and run-log sinks.
package evaluator

import (
	"github.com/sambeau/gradient/pkg/gradient/ast"
	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
)

var binaryOperators = map[lexer.TokenType]func(a, b Object) Object{
	lexer.PLUS:     add,
	lexer.MINUS:    subtract,
	lexer.ASTERISK: multiply,
	lexer.SLASH:    divide,
	lexer.PERCENT:  modulo,
	lexer.CARET:    power,
}

// Eval evaluates node in env. Runtime failures come back as *Error values.
func Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {

	// Statements
	case *ast.Program:
		return evalProgram(node, env)

	case *ast.ExpressionStatement:
		return Eval(node.Expression, env)

	case *ast.BlockStatement:
		return evalStatements(node.Statements, env)

	case *ast.AssignmentStatement:
		val := Eval(node.Value, env)
		if isError(val) {
			return val
		}
		return env.Set(node.Name.Value, val)

	case *ast.ReturnStatement:
		val := Eval(node.ReturnValue, env)
		if isError(val) {
			return val
		}
		return &ReturnValue{Value: val}

	case *ast.IfStatement:
		return evalIfStatement(node, env)

	case *ast.ForStatement:
		return evalForStatement(node, env)

	case *ast.WhileStatement:
		return evalWhileStatement(node, env)

	case *ast.FunctionDefinition:
		params := make([]string, len(node.Parameters))
		for i, p := range node.Parameters {
			params[i] = p.Value
		}
		env.Define(node.Name.Value, &Function{Params: params, Body: node.Body, Return: node.Return})
		return UNIT

	// Expressions
	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}

	case *ast.FloatLiteral:
		return &Float{Value: node.Value}

	case *ast.StringLiteral:
		return &String{Value: node.Value}

	case *ast.Boolean:
		return nativeBoolToBooleanObject(node.Value)

	case *ast.Identifier:
		return evalIdentifier(node, env)

	case *ast.ListLiteral:
		return evalListLiteral(node, env)

	case *ast.ChainExpression:
		return evalChain(node, env)

	case *ast.PrefixExpression:
		right := Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return withPosition(negate(right), node.Token, env)

	case *ast.Condition:
		return evalCondition(node, env)

	case *ast.CallExpression:
		return evalCall(node, env)

	case *ast.BuiltinCall:
		return evalBuiltin(node, env)
	}

	return newStructuredError("PARSE-0005", map[string]any{"Message": "cannot evaluate " + node.String()})
}

func evalProgram(program *ast.Program, env *Environment) Object {
	result := evalStatements(program.Statements, env)
	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value
	}
	return result
}

// evalStatements runs a statement list. The result is the last non-unit
// statement result. A pending return stops the list only inside a function;
// an error always stops it.
func evalStatements(stmts []ast.Statement, env *Environment) Object {
	var result Object = UNIT

	for _, stmt := range stmts {
		val := Eval(stmt, env)

		switch val := val.(type) {
		case *Error:
			return val
		case *ReturnValue:
			if env.InFunction() {
				return val
			}
			if val.Value != UNIT {
				result = val.Value
			}
			continue
		}
		if val != nil && val != UNIT {
			result = val
		}
	}

	return result
}

func evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if val, ok := env.Get(node.Value); ok {
		return val
	}
	gerr := gerrors.NewUndefinedIdentifier(node.Value, env.Identifiers())
	return withPosition(fromGradientError(gerr), node.Token, env)
}

func evalListLiteral(node *ast.ListLiteral, env *Environment) Object {
	elements := make([]Object, 0, len(node.Elements))
	for _, el := range node.Elements {
		val := Eval(el, env)
		if isError(val) {
			return val
		}
		elements = append(elements, val)
	}
	seq, err := buildSequence(elements)
	if err != nil {
		return withPosition(kernelError(err, "matrix"), node.Token, env)
	}
	return seq
}

// evalChain folds one precedence level left to right.
func evalChain(node *ast.ChainExpression, env *Environment) Object {
	acc := Eval(node.Operands[0], env)
	if isError(acc) {
		return acc
	}
	for i, op := range node.Operators {
		right := Eval(node.Operands[i+1], env)
		if isError(right) {
			return right
		}
		fn, ok := binaryOperators[op.Type]
		if !ok {
			return withPosition(unknownOperator(op.Literal), op, env)
		}
		acc = fn(acc, right)
		if isError(acc) {
			return withPosition(acc, op, env)
		}
	}
	return acc
}

// evalCondition returns the compare result for the relational form and the
// operand itself for the single form.
func evalCondition(node *ast.Condition, env *Environment) Object {
	left := Eval(node.Left, env)
	if isError(left) || node.Operator == "" {
		return left
	}
	right := Eval(node.Right, env)
	if isError(right) {
		return right
	}
	return withPosition(compare(left, right, node.Operator), node.Token, env)
}

func evalIfStatement(node *ast.IfStatement, env *Environment) Object {
	cond := evalCondition(node.Condition, env)
	if isError(cond) {
		return cond
	}
	switch {
	case isTruthy(cond):
		return Eval(node.Consequence, env)
	case node.Alternative != nil:
		return Eval(node.Alternative, env)
	}
	return UNIT
}

func evalForStatement(node *ast.ForStatement, env *Environment) Object {
	if init := Eval(node.Init, env); isError(init) {
		return init
	}

	var result Object = UNIT
	for {
		cond := evalCondition(node.Condition, env)
		if isError(cond) {
			return cond
		}
		if !isTruthy(cond) {
			break
		}

		body := Eval(node.Body, env)
		switch body.(type) {
		case *Error, *ReturnValue:
			return body
		}
		if body != UNIT {
			result = body
		}

		if post := Eval(node.Post, env); isError(post) {
			return post
		}
	}
	return result
}

func evalWhileStatement(node *ast.WhileStatement, env *Environment) Object {
	var result Object = UNIT
	for {
		cond := evalCondition(node.Condition, env)
		if isError(cond) {
			return cond
		}
		if !isTruthy(cond) {
			break
		}

		body := Eval(node.Body, env)
		switch body.(type) {
		case *Error, *ReturnValue:
			return body
		}
		if body != UNIT {
			result = body
		}
	}
	return result
}

// evalCall runs a user function in a scope holding only its parameters.
func evalCall(node *ast.CallExpression, env *Environment) Object {
	name := node.Function.Value
	fn, ok := env.Function(name)
	if !ok {
		gerr := gerrors.NewUndefinedFunction(name, env.FunctionNames())
		return withPosition(fromGradientError(gerr), node.Token, env)
	}
	if len(node.Arguments) != len(fn.Params) {
		return withPosition(newStructuredError("ARITY-0001", map[string]any{
			"Function": name,
			"Got":      len(node.Arguments),
			"Want":     len(fn.Params),
		}), node.Token, env)
	}

	params := make(map[string]Object, len(fn.Params))
	for i, arg := range node.Arguments {
		val := Eval(arg, env)
		if isError(val) {
			return val
		}
		params[fn.Params[i]] = val
	}

	restore, ok := env.enter(params)
	if !ok {
		return withPosition(newStructuredError("STATE-0002", map[string]any{
			"Max":      env.MaxCallDepth,
			"Function": name,
		}), node.Token, env)
	}
	defer restore()

	body := evalStatements(fn.Body.Statements, env)
	switch body := body.(type) {
	case *Error:
		return body
	case *ReturnValue:
		return body.Value
	}

	result := Eval(fn.Return, env)
	if rv, ok := result.(*ReturnValue); ok {
		return rv.Value
	}
	return result
}
