package parser

import (
	"fmt"
	"strconv"

	"github.com/sambeau/gradient/pkg/gradient/ast"
	gerrors "github.com/sambeau/gradient/pkg/gradient/errors"
	"github.com/sambeau/gradient/pkg/gradient/lexer"
)

// BuiltinArity is the fixed argument count of every keyword built-in.
var BuiltinArity = map[lexer.TokenType]int{
	lexer.LINEAR_REGRESSION:    2,
	lexer.MLP_CLASSIFIER:       3,
	lexer.NEURAL_NETWORK:       3,
	lexer.PREDICT:              2,
	lexer.TRAIN:                2,
	lexer.KMEANS:               2,
	lexer.FIT_PREDICT:          2,
	lexer.GET_CENTROIDS:        1,
	lexer.AUTOENCODER:          2,
	lexer.ENCODE:               2,
	lexer.DECODE:               2,
	lexer.RECONSTRUCT:          2,
	lexer.RECONSTRUCTION_ERROR: 2,
	lexer.GET_LOSS_HISTORY:     1,
	lexer.GET_ENCODING_WEIGHTS: 1,
	lexer.TRANSPOSE:            1,
	lexer.INVERSE:              1,
	lexer.MATMULT:              2,
	lexer.MATADD:               2,
	lexer.MATSUB:               2,
	lexer.READ_FILE:            1,
	lexer.WRITE_FILE:           2,
	lexer.PRINT:                1,
	lexer.PLOT:                 1,
	lexer.SCATTER:              2,
	lexer.HISTOGRAM:            1,
	lexer.SIN:                  1,
	lexer.COS:                  1,
	lexer.TAN:                  1,
	lexer.SQRT:                 1,
}

// operator sets for the three left-associative levels
var (
	sumOperators     = map[lexer.TokenType]bool{lexer.PLUS: true, lexer.MINUS: true}
	productOperators = map[lexer.TokenType]bool{lexer.ASTERISK: true, lexer.SLASH: true, lexer.PERCENT: true}
	powerOperators   = map[lexer.TokenType]bool{lexer.CARET: true}

	relationalOperators = map[lexer.TokenType]bool{
		lexer.EQ: true, lexer.NOT_EQ: true,
		lexer.LT: true, lexer.LTE: true,
		lexer.GT: true, lexer.GTE: true,
	}
)

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*gerrors.GradientError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn

	defDepth int // > 0 while inside a def body
}

type prefixParseFn func() ast.Expression

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l: l,
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.TRUE, p.parseBoolean)
	p.registerPrefix(lexer.FALSE, p.parseBoolean)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseListLiteral)
	p.registerPrefix(lexer.MINUS, p.parsePrefixExpression)
	for tt := range BuiltinArity {
		p.registerPrefix(tt, p.parseBuiltinCall)
	}

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns parser errors as strings.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		result[i] = err.String()
	}
	return result
}

// StructuredErrors returns parser errors as structured GradientError objects.
func (p *Parser) StructuredErrors() []*gerrors.GradientError {
	return p.structuredErrors
}

// addError adds a free-form parse error.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addError(msg string, line, column int) {
	p.addStructuredError("PARSE-0005", line, column, map[string]any{"Message": msg})
}

// addStructuredError adds a structured error from the catalog.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addStructuredError(code string, line, column int, data map[string]any) {
	if len(p.structuredErrors) > 0 {
		return
	}
	perr := gerrors.NewWithPosition(code, line, column, data)
	if name := p.l.Filename(); name != "" && name != "<input>" {
		perr.File = name
	}
	p.structuredErrors = append(p.structuredErrors, perr)
}

func (p *Parser) failed() bool {
	return len(p.structuredErrors) > 0
}

// registerPrefix registers a prefix parse function
func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses the program and returns the AST
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.curTokenIs(lexer.EOF) && !p.failed() {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
	}

	return program
}

// parseStatement parses one statement. On return curToken is the last
// token of the statement (its ';' or closing '}').
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.DEF:
		return p.parseFunctionDefinition()
	case lexer.RETURN:
		if p.defDepth == 0 {
			p.addStructuredError("PARSE-0003", p.curToken.Line, p.curToken.Column, nil)
			return nil
		}
		if stmt := p.parseReturnStatement(); stmt != nil {
			return stmt
		}
		return nil
	case lexer.IDENT:
		if p.peekTokenIs(lexer.ASSIGN) {
			stmt := p.parseAssignment()
			if stmt == nil || !p.expectTerminator() {
				return nil
			}
			return stmt
		}
	}
	return p.parseExpressionStatement()
}

// expectTerminator consumes the ';' ending a simple statement. The final
// statement of the input may omit it.
func (p *Parser) expectTerminator() bool {
	if p.peekTokenIs(lexer.SEMICOLON) {
		p.nextToken()
		return true
	}
	if p.peekTokenIs(lexer.EOF) {
		return true
	}
	p.peekError(lexer.SEMICOLON)
	return false
}

// parseAssignment parses 'IDENT = expression' without the terminator.
func (p *Parser) parseAssignment() *ast.AssignmentStatement {
	stmt := &ast.AssignmentStatement{Token: p.curToken}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()

	stmt.Value = p.parseExpression()
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	stmt.Expression = p.parseExpression()
	if stmt.Expression == nil || !p.expectTerminator() {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturnStatement() *ast.ReturnStatement {
	stmt := &ast.ReturnStatement{Token: p.curToken}

	p.nextToken()
	stmt.ReturnValue = p.parseExpression()
	if stmt.ReturnValue == nil || !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	return stmt
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := &ast.IfStatement{Token: p.curToken}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	stmt.Condition = p.parseCondition()
	if stmt.Condition == nil || !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	stmt.Consequence = p.parseBlockStatement()
	if stmt.Consequence == nil {
		return nil
	}

	if p.peekTokenIs(lexer.ELSE) {
		p.nextToken()

		if p.peekTokenIs(lexer.IF) {
			p.nextToken()
			alt := p.parseIfStatement()
			if alt == nil {
				return nil
			}
			stmt.Alternative = alt
			return stmt
		}

		if !p.expectPeek(lexer.LBRACE) {
			return nil
		}
		alt := p.parseBlockStatement()
		if alt == nil {
			return nil
		}
		stmt.Alternative = alt
	}

	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	stmt := &ast.ForStatement{Token: p.curToken}

	if !p.expectPeek(lexer.LPAREN) || !p.expectPeek(lexer.IDENT) {
		return nil
	}
	if stmt.Init = p.parseAssignment(); stmt.Init == nil {
		return nil
	}
	if !p.expectPeek(lexer.SEMICOLON) {
		return nil
	}
	p.nextToken()
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if !p.expectPeek(lexer.SEMICOLON) || !p.expectPeek(lexer.IDENT) {
		return nil
	}
	if stmt.Post = p.parseAssignment(); stmt.Post == nil {
		return nil
	}
	if !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	if stmt.Body = p.parseBlockStatement(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	stmt := &ast.WhileStatement{Token: p.curToken}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	p.nextToken()
	if stmt.Condition = p.parseCondition(); stmt.Condition == nil {
		return nil
	}
	if !p.expectPeek(lexer.RPAREN) || !p.expectPeek(lexer.LBRACE) {
		return nil
	}
	if stmt.Body = p.parseBlockStatement(); stmt.Body == nil {
		return nil
	}
	return stmt
}

func (p *Parser) parseFunctionDefinition() ast.Statement {
	def := &ast.FunctionDefinition{Token: p.curToken}

	if _, builtin := BuiltinArity[p.peekToken.Type]; builtin {
		p.addStructuredError("PARSE-0006", p.peekToken.Line, p.peekToken.Column,
			map[string]any{"Function": p.peekToken.Literal})
		return nil
	}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	def.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	params := p.parseParameters()
	if params == nil {
		return nil
	}
	seen := make(map[string]bool, len(params))
	for _, param := range params {
		if seen[param.Value] {
			p.addStructuredError("PARSE-0007", param.Token.Line, param.Token.Column,
				map[string]any{"Param": param.Value, "Name": def.Name.Value})
			return nil
		}
		seen[param.Value] = true
	}
	def.Parameters = params

	if !p.expectPeek(lexer.LBRACE) {
		return nil
	}

	p.defDepth++
	body := p.parseBlockStatement()
	p.defDepth--
	if body == nil {
		return nil
	}

	n := len(body.Statements)
	ret, ok := lastReturn(body)
	if !ok {
		p.addStructuredError("PARSE-0004", p.curToken.Line, p.curToken.Column,
			map[string]any{"Name": def.Name.Value})
		return nil
	}
	def.Return = ret
	body.Statements = body.Statements[:n-1]
	def.Body = body
	return def
}

func lastReturn(body *ast.BlockStatement) (*ast.ReturnStatement, bool) {
	if len(body.Statements) == 0 {
		return nil, false
	}
	ret, ok := body.Statements[len(body.Statements)-1].(*ast.ReturnStatement)
	return ret, ok
}

// parseParameters parses '(a, b, c)' with curToken on '('. Returns a
// non-nil slice on success.
func (p *Parser) parseParameters() []*ast.Identifier {
	params := []*ast.Identifier{}

	if p.peekTokenIs(lexer.RPAREN) {
		p.nextToken()
		return params
	}

	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return nil
		}
		params = append(params, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return params
}

// parseBlockStatement parses '{ statement* }' with curToken on '{'.
func (p *Parser) parseBlockStatement() *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.curToken}
	block.Statements = []ast.Statement{}

	p.nextToken()

	for !p.curTokenIs(lexer.RBRACE) && !p.curTokenIs(lexer.EOF) && !p.failed() {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}

	if p.failed() {
		return nil
	}
	if !p.curTokenIs(lexer.RBRACE) {
		p.addStructuredError("PARSE-0001", p.curToken.Line, p.curToken.Column,
			map[string]any{"Expected": "}", "Got": "end of input"})
		return nil
	}
	return block
}

// parseCondition parses 'expression [rel_op expression]'.
func (p *Parser) parseCondition() *ast.Condition {
	cond := &ast.Condition{Token: p.curToken}

	cond.Left = p.parseExpression()
	if cond.Left == nil {
		return nil
	}

	if relationalOperators[p.peekToken.Type] {
		p.nextToken()
		cond.Token = p.curToken
		cond.Operator = p.curToken.Literal
		p.nextToken()
		cond.Right = p.parseExpression()
		if cond.Right == nil {
			return nil
		}
	}
	return cond
}

// parseExpression parses term (('+'|'-') term)*
func (p *Parser) parseExpression() ast.Expression {
	return p.parseChain(sumOperators, p.parseTerm)
}

// parseTerm parses factor (('*'|'/'|'%') factor)*
func (p *Parser) parseTerm() ast.Expression {
	return p.parseChain(productOperators, p.parseFactor)
}

// parseFactor parses base ('^' base)*
func (p *Parser) parseFactor() ast.Expression {
	return p.parseChain(powerOperators, p.parseBase)
}

// parseChain collects one left-associative precedence level into a flat
// ChainExpression. A single operand is returned as-is.
func (p *Parser) parseChain(operators map[lexer.TokenType]bool, next func() ast.Expression) ast.Expression {
	first := next()
	if first == nil {
		return nil
	}
	if !operators[p.peekToken.Type] {
		return first
	}

	chain := &ast.ChainExpression{Token: p.peekToken, Operands: []ast.Expression{first}}
	for operators[p.peekToken.Type] {
		p.nextToken()
		chain.Operators = append(chain.Operators, p.curToken)
		p.nextToken()
		operand := next()
		if operand == nil {
			return nil
		}
		chain.Operands = append(chain.Operands, operand)
	}
	return chain
}

// parseBase dispatches on the current token through the prefix table.
func (p *Parser) parseBase() ast.Expression {
	if p.curTokenIs(lexer.ILLEGAL) {
		p.addError(p.curToken.Literal, p.curToken.Line, p.curToken.Column)
		return nil
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken.Type)
		return nil
	}
	return prefix()
}

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	if !p.peekTokenIs(lexer.LPAREN) {
		return ident
	}

	call := &ast.CallExpression{Token: p.curToken, Function: ident}
	p.nextToken()
	args := p.parseExpressionList(lexer.RPAREN)
	if args == nil {
		return nil
	}
	call.Arguments = args
	return call
}

func (p *Parser) parseBuiltinCall() ast.Expression {
	call := &ast.BuiltinCall{Token: p.curToken}

	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	args := p.parseExpressionList(lexer.RPAREN)
	if args == nil {
		return nil
	}

	want := BuiltinArity[call.Token.Type]
	if len(args) != want {
		p.addStructuredError("ARITY-0002", call.Token.Line, call.Token.Column, map[string]any{
			"Function": call.Token.Literal,
			"Want":     want,
			"Got":      len(args),
		})
		return nil
	}

	call.Arguments = args
	return call
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as integer", p.curToken.Literal), p.curToken.Line, p.curToken.Column)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}

	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(fmt.Sprintf("could not parse %q as float", p.curToken.Literal), p.curToken.Line, p.curToken.Column)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.Boolean{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression()
	if exp == nil || !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
	}

	p.nextToken()
	expression.Right = p.parseBase()
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}

	elements := p.parseExpressionList(lexer.RBRACKET)
	if elements == nil {
		return nil
	}
	list.Elements = elements
	return list
}

// parseExpressionList parses comma-separated expressions up to end, with
// curToken on the opening delimiter. Returns a non-nil slice on success.
func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression()
	if first == nil {
		return nil
	}
	list = append(list, first)

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		next := p.parseExpression()
		if next == nil {
			return nil
		}
		list = append(list, next)
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

// Helper functions
func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	if p.peekTokenIs(lexer.ILLEGAL) {
		p.addError(p.peekToken.Literal, p.peekToken.Line, p.peekToken.Column)
		return
	}

	gotLiteral := p.peekToken.Literal
	if p.peekTokenIs(lexer.EOF) {
		gotLiteral = "end of input"
	}

	// Report error at the position after the last successfully parsed token (curToken)
	line := p.curToken.Line
	column := p.curToken.Column + len(p.curToken.Literal)

	p.addStructuredError("PARSE-0001", line, column, map[string]any{
		"Expected": tokenTypeToReadableName(t),
		"Got":      gotLiteral,
	})
}

func (p *Parser) noPrefixParseFnError(t lexer.TokenType) {
	literal := p.curToken.Literal
	if t == lexer.EOF {
		literal = "end of input"
	}

	line := p.curToken.Line
	column := p.curToken.Column
	if p.curToken.Line > p.prevToken.Line && p.prevToken.Line > 0 {
		// Current token is on a new line, point to after the previous token
		line = p.prevToken.Line
		column = p.prevToken.Column + len(p.prevToken.Literal)
	}

	p.addStructuredError("PARSE-0002", line, column, map[string]any{"Token": literal})
}

func tokenTypeToReadableName(t lexer.TokenType) string {
	switch t {
	case lexer.IDENT:
		return "identifier"
	case lexer.INT, lexer.FLOAT:
		return "number"
	case lexer.STRING:
		return "string"
	case lexer.EOF:
		return "end of input"
	default:
		return t.String()
	}
}
