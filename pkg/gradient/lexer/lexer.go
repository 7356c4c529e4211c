package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenType represents different types of tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Identifiers and literals
	IDENT  // add, foobar, x, y, ...
	INT    // 1343456
	FLOAT  // 3.14159, 1e-6
	STRING // "foobar" or 'foobar'

	// Operators
	ASSIGN   // =
	PLUS     // +
	MINUS    // -
	ASTERISK // *
	SLASH    // /
	PERCENT  // %
	CARET    // ^
	LT       // <
	GT       // >
	LTE      // <=
	GTE      // >=
	EQ       // ==
	NOT_EQ   // !=

	// Delimiters
	COMMA     // ,
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	LBRACKET  // [
	RBRACKET  // ]

	// Statement keywords
	IF
	ELSE
	FOR
	WHILE
	DEF
	RETURN
	TRUE
	FALSE

	// Model keywords
	LINEAR_REGRESSION
	MLP_CLASSIFIER
	NEURAL_NETWORK
	PREDICT
	TRAIN
	KMEANS
	FIT_PREDICT
	GET_CENTROIDS
	AUTOENCODER
	ENCODE
	DECODE
	RECONSTRUCT
	RECONSTRUCTION_ERROR
	GET_LOSS_HISTORY
	GET_ENCODING_WEIGHTS

	// Matrix keywords
	TRANSPOSE
	INVERSE
	MATMULT
	MATADD
	MATSUB

	// IO keywords
	READ_FILE
	WRITE_FILE
	PRINT

	// Plot keywords
	PLOT
	SCATTER
	HISTOGRAM

	// Trigonometric keywords
	SIN
	COS
	TAN
	SQRT
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %s, Line: %d, Column: %d}",
		t.Type.String(), t.Literal, t.Line, t.Column)
}

var tokenNames = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	IDENT:     "IDENT",
	INT:       "INT",
	FLOAT:     "FLOAT",
	STRING:    "STRING",
	ASSIGN:    "=",
	PLUS:      "+",
	MINUS:     "-",
	ASTERISK:  "*",
	SLASH:     "/",
	PERCENT:   "%",
	CARET:     "^",
	LT:        "<",
	GT:        ">",
	LTE:       "<=",
	GTE:       ">=",
	EQ:        "==",
	NOT_EQ:    "!=",
	COMMA:     ",",
	SEMICOLON: ";",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
}

// String returns a string representation of the token type.
// Keywords render as their source spelling.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	for word, t := range keywords {
		if t == tt {
			return word
		}
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"if":     IF,
	"else":   ELSE,
	"for":    FOR,
	"while":  WHILE,
	"def":    DEF,
	"return": RETURN,
	"true":   TRUE,
	"false":  FALSE,

	"linear_regression":    LINEAR_REGRESSION,
	"mlp_classifier":       MLP_CLASSIFIER,
	"neural_network":       NEURAL_NETWORK,
	"predict":              PREDICT,
	"train":                TRAIN,
	"kmeans":               KMEANS,
	"fit_predict":          FIT_PREDICT,
	"get_centroids":        GET_CENTROIDS,
	"autoencoder":          AUTOENCODER,
	"encode":               ENCODE,
	"decode":               DECODE,
	"reconstruct":          RECONSTRUCT,
	"reconstruction_error": RECONSTRUCTION_ERROR,
	"get_loss_history":     GET_LOSS_HISTORY,
	"get_encoding_weights": GET_ENCODING_WEIGHTS,

	"transpose": TRANSPOSE,
	"inverse":   INVERSE,
	"matmult":   MATMULT,
	"matadd":    MATADD,
	"matsub":    MATSUB,

	"read_file":  READ_FILE,
	"write_file": WRITE_FILE,
	"print":      PRINT,

	"plot":      PLOT,
	"scatter":   SCATTER,
	"histogram": HISTOGRAM,

	"sin":  SIN,
	"cos":  COS,
	"tan":  TAN,
	"sqrt": SQRT,
}

// LookupIdent checks if an identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// Keywords returns every reserved word, for completion and typo hints.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	return words
}

// Lexer represents the lexical analyzer
type Lexer struct {
	filename     string
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination (first byte)
	chRune       rune // current character as a rune (for Unicode identifiers)
	chSize       int  // byte size of current character
	line         int
	column       int
}

// New creates a new lexer instance
func New(input string) *Lexer {
	return NewWithFilename(input, "<input>")
}

// NewWithFilename creates a new lexer instance with a specific filename
func NewWithFilename(input string, filename string) *Lexer {
	l := &Lexer{
		filename: filename,
		input:    input,
		line:     1,
		column:   0,
	}
	l.readChar()
	return l
}

// Filename returns the name the lexer was created with.
func (l *Lexer) Filename() string {
	return l.filename
}

// readChar reads the next character and advances position.
// ASCII takes the fast path; anything else is decoded as UTF-8.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL character represents EOF
		l.chRune = 0
		l.chSize = 0
		l.position = l.readPosition
		return
	}

	b := l.input[l.readPosition]
	if b < utf8.RuneSelf {
		l.ch = b
		l.chRune = rune(b)
		l.chSize = 1
		l.position = l.readPosition
		l.readPosition++
		if l.ch == '\n' {
			l.line++
			l.column = 0
		} else {
			l.column++
		}
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = b
	l.chRune = r
	l.chSize = size
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// peekCharN returns the character n positions ahead without advancing position
func (l *Lexer) peekCharN(n int) byte {
	pos := l.readPosition + n - 1
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespaceAndComments()

	line, col := l.line, l.column

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: EQ, Literal: "==", Line: line, Column: col}
		} else {
			tok = newToken(ASSIGN, l.ch, line, col)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: NOT_EQ, Literal: "!=", Line: line, Column: col}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "unexpected character '!' (use != for inequality)", Line: line, Column: col}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: LTE, Literal: "<=", Line: line, Column: col}
		} else {
			tok = newToken(LT, l.ch, line, col)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: GTE, Literal: ">=", Line: line, Column: col}
		} else {
			tok = newToken(GT, l.ch, line, col)
		}
	case '+':
		tok = newToken(PLUS, l.ch, line, col)
	case '-':
		tok = newToken(MINUS, l.ch, line, col)
	case '*':
		tok = newToken(ASTERISK, l.ch, line, col)
	case '/':
		tok = newToken(SLASH, l.ch, line, col)
	case '%':
		tok = newToken(PERCENT, l.ch, line, col)
	case '^':
		tok = newToken(CARET, l.ch, line, col)
	case ',':
		tok = newToken(COMMA, l.ch, line, col)
	case ';':
		tok = newToken(SEMICOLON, l.ch, line, col)
	case '(':
		tok = newToken(LPAREN, l.ch, line, col)
	case ')':
		tok = newToken(RPAREN, l.ch, line, col)
	case '{':
		tok = newToken(LBRACE, l.ch, line, col)
	case '}':
		tok = newToken(RBRACE, l.ch, line, col)
	case '[':
		tok = newToken(LBRACKET, l.ch, line, col)
	case ']':
		tok = newToken(RBRACKET, l.ch, line, col)
	case '"', '\'':
		str, terminated := l.readString(l.ch)
		if !terminated {
			return Token{Type: ILLEGAL, Literal: "unterminated string", Line: line, Column: col}
		}
		tok = Token{Type: STRING, Literal: str, Line: line, Column: col}
	case 0:
		tok = Token{Type: EOF, Literal: "", Line: line, Column: col}
	default:
		if isLetterRune(l.chRune) {
			ident := l.readIdentifier()
			return Token{Type: LookupIdent(ident), Literal: ident, Line: line, Column: col}
		}
		if isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())) {
			literal, isFloat, ok := l.readNumber()
			if !ok {
				return Token{Type: ILLEGAL, Literal: "invalid number literal: " + literal, Line: line, Column: col}
			}
			if isFloat {
				return Token{Type: FLOAT, Literal: literal, Line: line, Column: col}
			}
			return Token{Type: INT, Literal: literal, Line: line, Column: col}
		}
		literal := string(l.chRune)
		l.readChar()
		return Token{Type: ILLEGAL, Literal: fmt.Sprintf("unexpected character '%s'", literal), Line: line, Column: col}
	}

	l.readChar()
	return tok
}

// newToken creates a new token with the given parameters
func newToken(tokenType TokenType, ch byte, line, column int) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: line, Column: column}
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetterRune(l.chRune) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer or float literal, including an optional
// exponent. ok is false when an exponent has no digits.
func (l *Lexer) readNumber() (literal string, isFloat bool, ok bool) {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // consume the '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekCharN(2))) {
			isFloat = true
			l.readChar() // consume 'e'
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	literal = l.input[position:l.position]
	if isLetterRune(l.chRune) {
		// 12abc: swallow the rest so the error names the whole literal
		for isLetterRune(l.chRune) || isDigit(l.ch) {
			l.readChar()
		}
		return l.input[position:l.position], isFloat, false
	}
	return literal, isFloat, true
}

// readString reads a quoted string literal. The quote character that opened
// the literal closes it.
func (l *Lexer) readString(quote byte) (string, bool) {
	var result []byte
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' {
			l.readChar() // consume backslash
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			case '\'':
				result = append(result, '\'')
			default:
				// Unknown escape, keep as-is
				result = append(result, '\\')
				result = append(result, l.ch)
			}
		} else {
			result = append(result, l.input[l.position:l.position+l.chSize]...)
		}
		l.readChar()
	}

	return string(result), l.ch == quote
}

// skipWhitespaceAndComments skips blanks and line comments (# or //).
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#', l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// isLetterRune checks if a rune is a valid identifier character (letter or underscore).
func isLetterRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// isDigit checks if the character is a digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
