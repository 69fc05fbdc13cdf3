package text

import "unicode"

// Lexer tokenizes vecir assembly source.
type Lexer struct {
	source string
	pos    int
	line   int
	column int
	tokens []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	estTokens := len(source) / 4
	if estTokens < 16 {
		estTokens = 16
	}
	return &Lexer{
		source: source,
		line:   1,
		column: 1,
		tokens: make([]Token, 0, estTokens),
	}
}

// Tokenize returns all tokens from the source.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{Kind: TokenEOF, Line: l.line, Column: l.column})
	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	startLine, startColumn := l.line, l.column
	c := l.advance()

	switch c {
	case ' ', '\t', '\r', '\n':
		return nil
	case '/':
		if l.peek() == '/' {
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			return nil
		}
		return l.errorAt(startLine, startColumn, "unexpected character '/'")
	case '=':
		l.add(TokenEqual, "=", startLine, startColumn)
	case ',':
		l.add(TokenComma, ",", startLine, startColumn)
	case ':':
		l.add(TokenColon, ":", startLine, startColumn)
	case '<':
		l.add(TokenLess, "<", startLine, startColumn)
	case '>':
		l.add(TokenGreater, ">", startLine, startColumn)
	case '(':
		l.add(TokenLeftParen, "(", startLine, startColumn)
	case ')':
		l.add(TokenRightParen, ")", startLine, startColumn)
	case '{':
		l.add(TokenLeftBrace, "{", startLine, startColumn)
	case '}':
		l.add(TokenRightBrace, "}", startLine, startColumn)
	case '[':
		l.add(TokenLeftBracket, "[", startLine, startColumn)
	case ']':
		l.add(TokenRightBracket, "]", startLine, startColumn)
	case '-':
		if l.peek() == '>' {
			l.advance()
			l.add(TokenArrow, "->", startLine, startColumn)
		} else {
			l.add(TokenMinus, "-", startLine, startColumn)
		}
	case '%':
		name := l.scanName()
		if name == "" {
			return l.errorAt(startLine, startColumn, "expected a name after '%%'")
		}
		l.add(TokenValueName, name, startLine, startColumn)
	case '@':
		name := l.scanName()
		if name == "" {
			return l.errorAt(startLine, startColumn, "expected a name after '@'")
		}
		l.add(TokenSymbolName, name, startLine, startColumn)
	default:
		switch {
		case isDigit(c):
			return l.scanNumber(c, startLine, startColumn)
		case isNameStart(c):
			lexeme := string(c) + l.scanName()
			l.add(TokenIdent, lexeme, startLine, startColumn)
		default:
			return l.errorAt(startLine, startColumn, "unexpected character %q", c)
		}
	}
	return nil
}

func (l *Lexer) scanNumber(first rune, line, column int) error {
	lexeme := string(first)

	// Hexadecimal bit patterns.
	if first == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		lexeme += string(l.advance())
		for isHexDigit(l.peek()) {
			lexeme += string(l.advance())
		}
		l.add(TokenIntLiteral, lexeme, line, column)
		return nil
	}

	for isDigit(l.peek()) {
		lexeme += string(l.advance())
	}

	isFloat := false
	if l.peek() == '.' {
		isFloat = true
		lexeme += string(l.advance())
		for isDigit(l.peek()) {
			lexeme += string(l.advance())
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		// Only an exponent when followed by digits or a sign; otherwise
		// the 'e' starts an adjacent identifier (shape spellings never
		// produce this, but attribute keys could follow).
		save := l.pos
		probe := string(l.advance())
		if l.peek() == '+' || l.peek() == '-' {
			probe += string(l.advance())
		}
		if isDigit(l.peek()) {
			isFloat = true
			lexeme += probe
			for isDigit(l.peek()) {
				lexeme += string(l.advance())
			}
		} else {
			l.pos = save
			l.column -= len(probe)
		}
	}

	if isFloat {
		l.add(TokenFloatLiteral, lexeme, line, column)
	} else {
		l.add(TokenIntLiteral, lexeme, line, column)
	}
	return nil
}

func (l *Lexer) scanName() string {
	name := ""
	for isNamePart(l.peek()) {
		name += string(l.advance())
	}
	return name
}

func (l *Lexer) add(kind TokenKind, lexeme string, line, column int) {
	l.tokens = append(l.tokens, Token{Kind: kind, Lexeme: lexeme, Line: line, Column: column})
}

func (l *Lexer) advance() rune {
	c := rune(l.source[l.pos])
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return rune(l.source[l.pos])
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func (l *Lexer) errorAt(line, column int, format string, args ...interface{}) error {
	return newErrorf(Pos{Line: line, Column: column}, l.source, format, args...)
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isHexDigit(c rune) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isNameStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isNamePart(c rune) bool {
	return isNameStart(c) || isDigit(c)
}
