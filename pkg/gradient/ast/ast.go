package ast

import (
	"bytes"
	"strings"

	"github.com/sambeau/gradient/pkg/gradient/lexer"
)

// Node represents any node in the AST
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents statement nodes
type Statement interface {
	Node
	statementNode()
}

// Expression represents expression nodes
type Expression interface {
	Node
	expressionNode()
}

// Program represents the root node of every AST
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
	}

	return out.String()
}

// AssignmentStatement represents 'x = expr;'
type AssignmentStatement struct {
	Token lexer.Token // the identifier token
	Name  *Identifier
	Value Expression
}

func (as *AssignmentStatement) statementNode()       {}
func (as *AssignmentStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignmentStatement) String() string {
	var out bytes.Buffer

	out.WriteString(as.Name.String())
	out.WriteString(" = ")
	if as.Value != nil {
		out.WriteString(as.Value.String())
	}
	out.WriteString(";")
	return out.String()
}

// ReturnStatement represents 'return expr;' inside a def body
type ReturnStatement struct {
	Token       lexer.Token // the 'return' token
	ReturnValue Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }
func (rs *ReturnStatement) String() string {
	var out bytes.Buffer

	out.WriteString(rs.TokenLiteral() + " ")
	if rs.ReturnValue != nil {
		out.WriteString(rs.ReturnValue.String())
	}
	out.WriteString(";")
	return out.String()
}

// ExpressionStatement wraps an expression used as a statement
type ExpressionStatement struct {
	Token      lexer.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ""
}

// BlockStatement is a braced statement list
type BlockStatement struct {
	Token      lexer.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

// IfStatement represents 'if (cond) { ... } else { ... }'.
// Alternative is nil, a *BlockStatement, or an *IfStatement for else-if chains.
type IfStatement struct {
	Token       lexer.Token // the 'if' token
	Condition   *Condition
	Consequence *BlockStatement
	Alternative Statement
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Literal }
func (is *IfStatement) String() string {
	var out bytes.Buffer

	out.WriteString("if (")
	out.WriteString(is.Condition.String())
	out.WriteString(") ")
	out.WriteString(is.Consequence.String())
	if is.Alternative != nil {
		out.WriteString(" else ")
		out.WriteString(is.Alternative.String())
	}
	return out.String()
}

// ForStatement represents the C-style 'for (init; cond; post) { ... }'
type ForStatement struct {
	Token     lexer.Token // the 'for' token
	Init      *AssignmentStatement
	Condition *Condition
	Post      *AssignmentStatement
	Body      *BlockStatement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Literal }
func (fs *ForStatement) String() string {
	var out bytes.Buffer

	out.WriteString("for (")
	out.WriteString(strings.TrimSuffix(fs.Init.String(), ";"))
	out.WriteString("; ")
	out.WriteString(fs.Condition.String())
	out.WriteString("; ")
	out.WriteString(strings.TrimSuffix(fs.Post.String(), ";"))
	out.WriteString(") ")
	out.WriteString(fs.Body.String())
	return out.String()
}

// WhileStatement represents 'while (cond) { ... }'
type WhileStatement struct {
	Token     lexer.Token // the 'while' token
	Condition *Condition
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Literal }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

// FunctionDefinition represents 'def name(params) { body return expr; }'.
// Return holds the mandatory trailing return; earlier returns live in Body.
type FunctionDefinition struct {
	Token      lexer.Token // the 'def' token
	Name       *Identifier
	Parameters []*Identifier
	Body       *BlockStatement
	Return     *ReturnStatement
}

func (fd *FunctionDefinition) statementNode()       {}
func (fd *FunctionDefinition) TokenLiteral() string { return fd.Token.Literal }
func (fd *FunctionDefinition) String() string {
	var out bytes.Buffer

	params := make([]string, 0, len(fd.Parameters))
	for _, p := range fd.Parameters {
		params = append(params, p.String())
	}

	out.WriteString("def ")
	out.WriteString(fd.Name.String())
	out.WriteString("(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") { ")
	for _, s := range fd.Body.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString(fd.Return.String())
	out.WriteString(" }")
	return out.String()
}

// Condition is 'expr' or 'expr rel_op expr'. Operator is empty for the
// single-expression form.
type Condition struct {
	Token    lexer.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (c *Condition) expressionNode()      {}
func (c *Condition) TokenLiteral() string { return c.Token.Literal }
func (c *Condition) String() string {
	if c.Operator == "" {
		return c.Left.String()
	}
	return c.Left.String() + " " + c.Operator + " " + c.Right.String()
}

// ChainExpression is one precedence level of left-associative binary
// operators: Operands[0] Operators[0] Operands[1] ... Operators[n-1] Operands[n].
type ChainExpression struct {
	Token     lexer.Token // the first operator token
	Operands  []Expression
	Operators []lexer.Token
}

func (ce *ChainExpression) expressionNode()      {}
func (ce *ChainExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *ChainExpression) String() string {
	var out bytes.Buffer

	out.WriteString("(")
	for i, operand := range ce.Operands {
		if i > 0 {
			out.WriteString(" " + ce.Operators[i-1].Literal + " ")
		}
		out.WriteString(operand.String())
	}
	out.WriteString(")")
	return out.String()
}

// PrefixExpression represents unary minus
type PrefixExpression struct {
	Token    lexer.Token // the prefix token, e.g. -
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// Identifier represents a variable reference
type Identifier struct {
	Token lexer.Token // the lexer.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral represents integer literals
type IntegerLiteral struct {
	Token lexer.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

// FloatLiteral represents floating-point literals
type FloatLiteral struct {
	Token lexer.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// StringLiteral represents string literals
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return `"` + sl.Value + `"` }

// Boolean represents true and false
type Boolean struct {
	Token lexer.Token
	Value bool
}

func (b *Boolean) expressionNode()      {}
func (b *Boolean) TokenLiteral() string { return b.Token.Literal }
func (b *Boolean) String() string       { return b.Token.Literal }

// ListLiteral represents '[a, b, c]'. Whether it becomes a list or a
// matrix is decided once its elements are evaluated.
type ListLiteral struct {
	Token    lexer.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) String() string {
	elements := make([]string, 0, len(ll.Elements))
	for _, el := range ll.Elements {
		elements = append(elements, el.String())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// CallExpression represents a call to a user-defined function
type CallExpression struct {
	Token     lexer.Token // the function name token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	return ce.Function.String() + "(" + joinArgs(ce.Arguments) + ")"
}

// BuiltinCall represents a call to a keyword built-in (models, matrix
// algebra, IO, plotting and trigonometry). Token.Type selects the built-in.
type BuiltinCall struct {
	Token     lexer.Token
	Arguments []Expression
}

func (bc *BuiltinCall) expressionNode()      {}
func (bc *BuiltinCall) TokenLiteral() string { return bc.Token.Literal }
func (bc *BuiltinCall) String() string {
	return bc.Token.Literal + "(" + joinArgs(bc.Arguments) + ")"
}

func joinArgs(args []Expression) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
