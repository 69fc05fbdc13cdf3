package text

import (
	"strings"
	"testing"
)

func TestLexer_Basic(t *testing.T) {
	tokens, err := NewLexer("%0 = constant {value = 4} : () -> i64").Tokenize()
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}

	wantKinds := []TokenKind{
		TokenValueName, TokenEqual, TokenIdent, TokenLeftBrace, TokenIdent,
		TokenEqual, TokenIntLiteral, TokenRightBrace, TokenColon,
		TokenLeftParen, TokenRightParen, TokenArrow, TokenIdent, TokenEOF,
	}
	if len(tokens) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if tokens[i].Kind != kind {
			t.Errorf("token %d: got %s, want %s", i, tokens[i].Kind, kind)
		}
	}
}

func TestLexer_ShapeSplitsAcrossTokens(t *testing.T) {
	tokens, err := NewLexer("vector<4x4xf32>").Tokenize()
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}

	// 4x4xf32 lexes as the integer 4 followed by the identifier x4xf32;
	// the parser rejoins them.
	want := []struct {
		kind   TokenKind
		lexeme string
	}{
		{TokenIdent, "vector"},
		{TokenLess, "<"},
		{TokenIntLiteral, "4"},
		{TokenIdent, "x4xf32"},
		{TokenGreater, ">"},
		{TokenEOF, ""},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Kind != w.kind || tokens[i].Lexeme != w.lexeme {
			t.Errorf("token %d: got (%s, %q), want (%s, %q)",
				i, tokens[i].Kind, tokens[i].Lexeme, w.kind, w.lexeme)
		}
	}
}

func TestLexer_Numbers(t *testing.T) {
	tests := []struct {
		source string
		kind   TokenKind
	}{
		{"42", TokenIntLiteral},
		{"0x3c00", TokenIntLiteral},
		{"1.5", TokenFloatLiteral},
		{"2e3", TokenFloatLiteral},
		{"1.25e-3", TokenFloatLiteral},
	}
	for _, tt := range tests {
		tokens, err := NewLexer(tt.source).Tokenize()
		if err != nil {
			t.Errorf("%q: tokenize failed: %v", tt.source, err)
			continue
		}
		if tokens[0].Kind != tt.kind || tokens[0].Lexeme != tt.source {
			t.Errorf("%q: got (%s, %q)", tt.source, tokens[0].Kind, tokens[0].Lexeme)
		}
	}
}

func TestLexer_Comments(t *testing.T) {
	tokens, err := NewLexer("// a comment\nfunc").Tokenize()
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if tokens[0].Kind != TokenIdent || tokens[0].Lexeme != "func" {
		t.Errorf("comment not skipped: got (%s, %q)", tokens[0].Kind, tokens[0].Lexeme)
	}
	if tokens[0].Line != 2 {
		t.Errorf("line tracking: got %d, want 2", tokens[0].Line)
	}
}

func TestLexer_LonePercent(t *testing.T) {
	_, err := NewLexer("return % : (f32)").Tokenize()
	if err == nil {
		t.Fatal("expected an error for a lone '%'")
	}
	if !strings.Contains(err.Error(), "expected a name after '%'") {
		t.Errorf("message %q does not name the offending token", err.Error())
	}
}

func TestLexer_BadCharacter(t *testing.T) {
	_, err := NewLexer("func $bad").Tokenize()
	if err == nil {
		t.Fatal("expected an error for '$'")
	}
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error is %T, want *ParseError", err)
	}
	if perr.Pos.Line != 1 || perr.Pos.Column != 6 {
		t.Errorf("error at %d:%d, want 1:6", perr.Pos.Line, perr.Pos.Column)
	}
}
