package text

// TokenKind represents the type of token.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota

	TokenIdent        // func, opnames, type names, attribute keys
	TokenValueName    // %name
	TokenSymbolName   // @name
	TokenIntLiteral   // 42, 0x3C00, -7 is Minus + 7
	TokenFloatLiteral // 1.5, 2e-3

	TokenEqual        // =
	TokenComma        // ,
	TokenColon        // :
	TokenMinus        // -
	TokenArrow        // ->
	TokenLess         // <
	TokenGreater      // >
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
)

// Token is a lexeme with its source position.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
	Column int
}

// Pos returns the token's source position.
func (t Token) Pos() Pos {
	return Pos{Line: t.Line, Column: t.Column}
}

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier"
	case TokenValueName:
		return "value name"
	case TokenSymbolName:
		return "symbol name"
	case TokenIntLiteral:
		return "integer literal"
	case TokenFloatLiteral:
		return "float literal"
	case TokenEqual:
		return "'='"
	case TokenComma:
		return "','"
	case TokenColon:
		return "':'"
	case TokenMinus:
		return "'-'"
	case TokenArrow:
		return "'->'"
	case TokenLess:
		return "'<'"
	case TokenGreater:
		return "'>'"
	case TokenLeftParen:
		return "'('"
	case TokenRightParen:
		return "')'"
	case TokenLeftBrace:
		return "'{'"
	case TokenRightBrace:
		return "'}'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	default:
		return "unknown token"
	}
}
